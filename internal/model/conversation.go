// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Listing defaults shared with the history store.
const (
	DefaultTitle   = "New Conversation"
	EmptyPreview   = "Empty conversation"
	TitleRunes     = 50
	PreviewRunes   = 100
	conversationID = "conv_"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation is a saved transcript: the messages plus who chatted and when.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	UserID    string     `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

// NewConversation starts an empty conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        conversationID + uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []*Message{},
	}
}

// GetTitle falls back to DefaultTitle before the first question is asked.
func (c *Conversation) GetTitle() string {
	if c.Title == "" {
		return DefaultTitle
	}
	return c.Title
}

// Clone copies the conversation and every message in it.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Messages = make([]*Message, len(c.Messages))
	for i, msg := range c.Messages {
		out.Messages[i] = msg.Clone()
	}
	return &out
}

// updateTitle names the conversation after the first question.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(TitleRunes)
			return
		}
	}
}

// ConversationMeta is one row of the history list.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}
