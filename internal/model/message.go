// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// QUICK ACTIONS
// =============================================================================

// ActionKind identifies what a quick-action button does.
type ActionKind string

const (
	ActionSearchResources  ActionKind = "search_resources"
	ActionBrowseCategories ActionKind = "browse_categories"
	ActionBookConsultation ActionKind = "book_consultation"
	ActionSignIn           ActionKind = "sign_in"
	ActionViewPricing      ActionKind = "view_pricing"
	ActionContactSupport   ActionKind = "contact_support"
)

// Action is a suggested quick action attached to an assistant message.
// Query is the text sent when the action is chosen from the chat input.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Query string     `json:"query,omitempty"`
}

// QueryText returns the text to send for the action, falling back to its
// label.
func (a Action) QueryText() string {
	if a.Query != "" {
		return a.Query
	}
	return a.Label
}

// =============================================================================
// TOOL INVOCATION
// =============================================================================

// ToolInvocation records one tool call made while producing an assistant turn.
type ToolInvocation struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// HasResult reports whether the result has arrived.
func (t *ToolInvocation) HasResult() bool {
	return len(t.Result) > 0
}

// setResult stores the first real result. A missing or null result leaves
// the invocation pending, and later results are ignored.
func (t *ToolInvocation) setResult(result json.RawMessage) bool {
	if t.HasResult() || isNullRaw(result) {
		return false
	}
	t.Result = cloneRaw(result)
	return true
}

func isNullRaw(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (t *ToolInvocation) clone() *ToolInvocation {
	return &ToolInvocation{
		ToolCallID: t.ToolCallID,
		ToolName:   t.ToolName,
		Args:       cloneRaw(t.Args),
		Result:     cloneRaw(t.Result),
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a transcript.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content         string            `json:"content"`
	ToolInvocations []*ToolInvocation `json:"toolInvocations,omitempty"`
	Buttons         []Action          `json:"buttons,omitempty"`

	// Failed marks a turn that ended on a transport or stream failure.
	Failed bool `json:"failed,omitempty"`

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        newMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty assistant message in streaming state.
func NewAssistantMessage() *Message {
	return &Message{
		ID:          newMessageID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendToken appends text to a streaming message.
func (m *Message) AppendToken(token string) {
	if m.IsStreaming {
		m.streamContent.WriteString(token)
	}
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// FindToolInvocation returns the invocation with the given call ID, or nil.
func (m *Message) FindToolInvocation(toolCallID string) *ToolInvocation {
	for _, inv := range m.ToolInvocations {
		if inv.ToolCallID == toolCallID {
			return inv
		}
	}
	return nil
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.GetDisplayContent()), " ")
	runes := []rune(content)
	if len(runes) <= maxLen || maxLen < 4 {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Clone returns a deep copy that shares no mutable state with m.
func (m *Message) Clone() *Message {
	c := &Message{
		ID:          m.ID,
		Role:        m.Role,
		Timestamp:   m.Timestamp,
		Content:     m.Content,
		Failed:      m.Failed,
		IsStreaming: m.IsStreaming,
	}
	if m.IsStreaming {
		c.streamContent.WriteString(m.streamContent.String())
	}
	if len(m.ToolInvocations) > 0 {
		c.ToolInvocations = make([]*ToolInvocation, len(m.ToolInvocations))
		for i, inv := range m.ToolInvocations {
			c.ToolInvocations[i] = inv.clone()
		}
	}
	if len(m.Buttons) > 0 {
		c.Buttons = append([]Action(nil), m.Buttons...)
	}
	return c
}

// finalize moves streamed content into Content and leaves streaming state.
func (m *Message) finalize(fallback string) {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
	if m.Content == "" {
		m.Content = fallback
	}
}

// =============================================================================
// HISTORY ENTRY
// =============================================================================

// HistoryEntry is the reduced {role, content} form sent to the chat endpoint.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newMessageID creates a unique message ID.
func newMessageID() string {
	return "msg_" + uuid.NewString()
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
