// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Transcript errors.
var (
	// ErrInFlight is returned when an operation requires that no assistant
	// message is currently receiving events.
	ErrInFlight = errors.New("an assistant message is still in flight")
)

// =============================================================================
// TRANSCRIPT CONTROLLER
// =============================================================================

// Transcript owns the ordered message list of one chat session.
//
// All mutation goes through its methods under a single mutex. At most one
// assistant message is in flight at a time. Messages are only appended and a
// finalized message is never changed again.
type Transcript struct {
	mu       sync.Mutex
	conv     *Conversation
	inflight *Message
	onChange []func()
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{conv: NewConversation()}
}

// NewTranscriptFrom resumes a transcript from a stored conversation.
// Any message left in streaming state is finalized as-is.
func NewTranscriptFrom(conv *Conversation) *Transcript {
	c := conv.Clone()
	for _, msg := range c.Messages {
		msg.finalize("")
	}
	return &Transcript{conv: c}
}

// OnChange registers fn to be called after every mutation. Callbacks run
// outside the lock.
func (t *Transcript) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = append(t.onChange, fn)
	t.mu.Unlock()
}

// AppendUser appends a user message. It fails with ErrInFlight while an
// assistant message is still open.
func (t *Transcript) AppendUser(text string) (*Message, error) {
	t.mu.Lock()
	if t.inflight != nil {
		t.mu.Unlock()
		return nil, ErrInFlight
	}
	msg := NewUserMessage(text)
	t.appendLocked(msg)
	snapshot := msg.Clone()
	t.mu.Unlock()

	t.notify()
	return snapshot, nil
}

// BeginAssistant opens a new, empty assistant message.
func (t *Transcript) BeginAssistant() (*Message, error) {
	t.mu.Lock()
	if t.inflight != nil {
		t.mu.Unlock()
		return nil, ErrInFlight
	}
	msg := t.beginLocked()
	snapshot := msg.Clone()
	t.mu.Unlock()

	t.notify()
	return snapshot, nil
}

// AppendAssistant appends an already finished assistant message, for replies
// that never streamed. It fails with ErrInFlight while a message is open.
func (t *Transcript) AppendAssistant(content string, buttons []Action, failed bool) (*Message, error) {
	t.mu.Lock()
	if t.inflight != nil {
		t.mu.Unlock()
		return nil, ErrInFlight
	}
	msg := NewMessage(RoleAssistant, content)
	if len(buttons) > 0 {
		msg.Buttons = append([]Action(nil), buttons...)
	}
	msg.Failed = failed
	t.appendLocked(msg)
	snapshot := msg.Clone()
	t.mu.Unlock()

	t.notify()
	return snapshot, nil
}

// AppendDelta appends text to the in-flight assistant message, opening one
// first if needed.
func (t *Transcript) AppendDelta(text string) {
	t.mu.Lock()
	msg := t.inflight
	if msg == nil {
		msg = t.beginLocked()
	}
	msg.AppendToken(text)
	t.mu.Unlock()

	t.notify()
}

// RecordToolCall adds a pending tool invocation to the in-flight assistant
// message, opening one first if needed. A repeated call ID is ignored.
func (t *Transcript) RecordToolCall(toolCallID, toolName string, args json.RawMessage) bool {
	t.mu.Lock()
	msg := t.inflight
	if msg == nil {
		msg = t.beginLocked()
	}
	if msg.FindToolInvocation(toolCallID) != nil {
		t.mu.Unlock()
		return false
	}
	msg.ToolInvocations = append(msg.ToolInvocations, &ToolInvocation{
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Args:       cloneRaw(args),
	})
	t.mu.Unlock()

	t.notify()
	return true
}

// RecordToolResult stores the result for a recorded tool call. Results for
// unknown call IDs and repeated results are ignored. Reports whether the
// result was applied.
func (t *Transcript) RecordToolResult(toolCallID string, result json.RawMessage) bool {
	t.mu.Lock()
	if t.inflight == nil {
		t.mu.Unlock()
		return false
	}
	inv := t.inflight.FindToolInvocation(toolCallID)
	if inv == nil || !inv.setResult(result) {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	t.notify()
	return true
}

// Finalization describes how the in-flight assistant message is closed.
type Finalization struct {
	// Fallback replaces the content when nothing was streamed.
	Fallback string
	Buttons  []Action
	Failed   bool
}

// FinalizeAssistant closes the in-flight assistant message and returns a
// snapshot of it. When no message is in flight a new one is created, so
// every call yields exactly one finalized assistant message.
func (t *Transcript) FinalizeAssistant(f Finalization) *Message {
	t.mu.Lock()
	msg := t.inflight
	if msg == nil {
		msg = t.beginLocked()
	}
	msg.finalize(f.Fallback)
	if len(f.Buttons) > 0 {
		msg.Buttons = append([]Action(nil), f.Buttons...)
	}
	msg.Failed = f.Failed
	t.inflight = nil
	t.conv.UpdatedAt = time.Now()
	snapshot := msg.Clone()
	t.mu.Unlock()

	t.notify()
	return snapshot
}

// =============================================================================
// READ ACCESS
// =============================================================================

// InFlight reports whether an assistant message is currently open.
func (t *Transcript) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight != nil
}

// InFlightContent returns the text streamed so far into the open message.
func (t *Transcript) InFlightContent() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight == nil {
		return ""
	}
	return t.inflight.GetDisplayContent()
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conv.Messages)
}

// Messages returns deep copies of all messages in order.
func (t *Transcript) Messages() []*Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Message, len(t.conv.Messages))
	for i, msg := range t.conv.Messages {
		out[i] = msg.Clone()
	}
	return out
}

// Last returns a copy of the most recent message, or nil if empty.
func (t *Transcript) Last() *Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conv.Messages) == 0 {
		return nil
	}
	return t.conv.Messages[len(t.conv.Messages)-1].Clone()
}

// History reduces every finalized message to its {role, content} form.
func (t *Transcript) History() []HistoryEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := make([]HistoryEntry, 0, len(t.conv.Messages))
	for _, msg := range t.conv.Messages {
		if msg.IsStreaming {
			continue
		}
		entries = append(entries, HistoryEntry{Role: msg.Role, Content: msg.Content})
	}
	return entries
}

// Snapshot returns a deep copy of the underlying conversation.
func (t *Transcript) Snapshot() *Conversation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conv.Clone()
}

// ID returns the conversation ID.
func (t *Transcript) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conv.ID
}

// SetUserID tags the conversation with the caller identity.
func (t *Transcript) SetUserID(userID string) {
	t.mu.Lock()
	t.conv.UserID = userID
	t.mu.Unlock()
}

// =============================================================================
// INTERNAL
// =============================================================================

func (t *Transcript) appendLocked(msg *Message) {
	t.conv.Messages = append(t.conv.Messages, msg)
	t.conv.UpdatedAt = time.Now()
	t.conv.updateTitle()
}

func (t *Transcript) beginLocked() *Message {
	msg := NewAssistantMessage()
	t.appendLocked(msg)
	t.inflight = msg
	return msg
}

func (t *Transcript) notify() {
	t.mu.Lock()
	callbacks := append([]func(){}, t.onChange...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
