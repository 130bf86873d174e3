// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a named chat log. Messages are append-only.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation(name string) Conversation {
	return Conversation{
		ID:        NewID(),
		Name:      name,
		Messages:  []Message{},
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy that shares no mutable state with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// IndexOf returns the position of the message with the given ID, or -1.
func (c Conversation) IndexOf(messageID string) int {
	for i, msg := range c.Messages {
		if msg.ID == messageID {
			return i
		}
	}
	return -1
}

// HasUserMessage reports whether any user message has been sent.
func (c Conversation) HasUserMessage() bool {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return true
		}
	}
	return false
}

// LastMessage returns the most recent message and true, or false if empty.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Preview returns the first user message truncated for list display.
func (c Conversation) Preview(maxLen int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Text != "" {
			return msg.Preview(maxLen)
		}
	}
	return ""
}

// History converts the message log into gateway turns.
func (c Conversation) History() []Turn {
	turns := make([]Turn, 0, len(c.Messages))
	for _, msg := range c.Messages {
		turns = append(turns, msg.Turn())
	}
	return turns
}

// MessageCount returns the number of messages.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}
