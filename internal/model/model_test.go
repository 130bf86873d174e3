// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"USER", RoleUser, false},
		{"assistant", RoleAssistant, false},
		{"model", RoleAssistant, false},
		{"ai", RoleAssistant, false},
		{"system", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// =============================================================================
// LANGUAGE TESTS
// =============================================================================

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"en", English, false},
		{"en-US", English, false},
		{"es-MX", Spanish, false},
		{"fr", French, false},
		{"de-AT", German, false},
		{"German", German, false},
		{"español", Spanish, false},
		{"ja", "", true},
		{"klingon!", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLanguage(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLanguage(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseLanguage(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseLanguageOrDefault(t *testing.T) {
	if got := ParseLanguageOrDefault("nope"); got != DefaultLanguage {
		t.Errorf("ParseLanguageOrDefault(nope) = %q, want %q", got, DefaultLanguage)
	}
	if got := ParseLanguageOrDefault("fr"); got != French {
		t.Errorf("ParseLanguageOrDefault(fr) = %q, want %q", got, French)
	}
}

func TestLanguage_Names(t *testing.T) {
	for _, l := range Languages {
		if !l.Valid() {
			t.Errorf("%q should be valid", l)
		}
		if l.Name() == "" || l.NativeName() == "" {
			t.Errorf("%q has empty names", l)
		}
	}
	if Language("xx").Valid() {
		t.Error("xx should not be valid")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_CloneIsIndependent(t *testing.T) {
	conv := NewConversation("New Chat")
	conv.Messages = append(conv.Messages, NewUserMessage("Hello", English))

	clone := conv.Clone()
	clone.Messages[0].Text = "changed"
	clone.Messages = append(clone.Messages, NewPlaceholder(English))

	if conv.Messages[0].Text != "Hello" {
		t.Errorf("original text mutated: %q", conv.Messages[0].Text)
	}
	if len(conv.Messages) != 1 {
		t.Errorf("original length = %d, want 1", len(conv.Messages))
	}
}

func TestConversation_HasUserMessage(t *testing.T) {
	conv := NewConversation("c")
	if conv.HasUserMessage() {
		t.Error("empty conversation should have no user message")
	}
	conv.Messages = append(conv.Messages, NewPlaceholder(English))
	if conv.HasUserMessage() {
		t.Error("assistant-only conversation should have no user message")
	}
	conv.Messages = append(conv.Messages, NewUserMessage("hi", English))
	if !conv.HasUserMessage() {
		t.Error("expected a user message")
	}
}

func TestConversation_History(t *testing.T) {
	conv := NewConversation("c")
	conv.Messages = append(conv.Messages,
		NewUserMessage("Hello", English),
		NewMessage(RoleAssistant, "Hi", English),
	)

	history := conv.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0] != (Turn{Role: RoleUser, Text: "Hello"}) {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1] != (Turn{Role: RoleAssistant, Text: "Hi"}) {
		t.Errorf("history[1] = %+v", history[1])
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("héllo wörld, this is long", English)
	if got := msg.Preview(8); got != "héllo..." {
		t.Errorf("Preview(8) = %q", got)
	}
	if got := msg.Preview(100); got != msg.Text {
		t.Errorf("Preview(100) = %q", got)
	}
}

// =============================================================================
// STATE TESTS
// =============================================================================

func TestState_Normalize(t *testing.T) {
	a := NewConversation("a")
	b := NewConversation("b")

	tests := []struct {
		name       string
		state      State
		wantActive string
	}{
		{"empty clears active", State{ActiveConversationID: "gone"}, ""},
		{"missing active picks first", State{Conversations: []Conversation{a, b}, ActiveConversationID: "gone"}, a.ID},
		{"null active picks first", State{Conversations: []Conversation{a, b}}, a.ID},
		{"valid active kept", State{Conversations: []Conversation{a, b}, ActiveConversationID: b.ID}, b.ID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.state
			s.Normalize()
			if s.ActiveConversationID != tc.wantActive {
				t.Errorf("active = %q, want %q", s.ActiveConversationID, tc.wantActive)
			}
			if s.Language != DefaultLanguage {
				t.Errorf("language = %q, want default", s.Language)
			}
		})
	}
}
