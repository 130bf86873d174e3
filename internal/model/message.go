// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/lumen/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// ParseRole maps a transport role tag onto a Role.
// "model" and "ai" are accepted as aliases for the assistant.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "assistant", "model", "ai":
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Assistant messages start out as empty placeholders and have their Text
// replaced as fragments arrive. Once the send that created them ends they are
// never touched again.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Language  Language  `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, text string, lang Language) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Text:      text,
		Language:  lang,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string, lang Language) Message {
	return NewMessage(RoleUser, text, lang)
}

// NewPlaceholder creates an empty assistant message to be filled by a stream.
func NewPlaceholder(lang Language) Message {
	return NewMessage(RoleAssistant, "", lang)
}

// IsEmpty returns true if the message has no text.
func (m Message) IsEmpty() bool {
	return m.Text == ""
}

// Preview returns a truncated preview of the message text.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(strings.ReplaceAll(m.Text, "\n", " "), maxLen)
}

// Turn converts the message to a gateway history entry.
func (m Message) Turn() Turn {
	return Turn{Role: m.Role, Text: m.Text}
}

// Turn is one entry of the history handed to the model gateway.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// NewID returns a fresh opaque identifier for conversations and messages.
func NewID() string {
	return uuid.NewString()
}
