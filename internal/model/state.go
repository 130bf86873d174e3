// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// State is a self-consistent snapshot of the application state.
// Snapshots are deep copies; mutating one has no effect on the store.
type State struct {
	// Conversations in display order (newest first).
	Conversations []Conversation `json:"conversations"`

	// ActiveConversationID is empty when no conversation is active.
	ActiveConversationID string `json:"active_conversation_id"`

	Language Language `json:"language"`

	// InFlight is true while a send is streaming. Never persisted.
	InFlight bool `json:"-"`
}

// Find returns the conversation with the given ID.
func (s State) Find(id string) (Conversation, bool) {
	for _, conv := range s.Conversations {
		if conv.ID == id {
			return conv, true
		}
	}
	return Conversation{}, false
}

// Active returns the active conversation, if any.
func (s State) Active() (Conversation, bool) {
	if s.ActiveConversationID == "" {
		return Conversation{}, false
	}
	return s.Find(s.ActiveConversationID)
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Conversations = make([]Conversation, len(s.Conversations))
	for i, conv := range s.Conversations {
		out.Conversations[i] = conv.Clone()
	}
	return out
}

// Normalize enforces the active-pointer invariants: the active ID refers to
// an existing conversation, is empty iff there are none, and falls back to
// the first conversation. Unknown languages reset to the default.
func (s *State) Normalize() {
	if s.Conversations == nil {
		s.Conversations = []Conversation{}
	}
	if len(s.Conversations) == 0 {
		s.ActiveConversationID = ""
	} else if _, ok := s.Find(s.ActiveConversationID); !ok {
		s.ActiveConversationID = s.Conversations[0].ID
	}
	if !s.Language.Valid() {
		s.Language = DefaultLanguage
	}
}
