// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package title

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/provider/providertest"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Greeting Exchange", "Greeting Exchange"},
		{"double quotes", `"Greeting Exchange"`, "Greeting Exchange"},
		{"single quotes and period", `'Greeting Exchange.'`, "Greeting Exchange"},
		{"quote then period", `"Greeting Exchange".`, "Greeting Exchange"},
		{"typographic quotes", "“Saludo Inicial”", "Saludo Inicial"},
		{"guillemets", "« Premier échange »", "Premier échange"},
		{"label", "TITLE: Greeting Exchange", "Greeting Exchange"},
		{"lowercase label", "Title: \"Go Concurrency Basics\"", "Go Concurrency Basics"},
		{"markdown bold", "**Go Concurrency Basics**", "Go Concurrency Basics"},
		{"markdown italic", "_Go Concurrency Basics_", "Go Concurrency Basics"},
		{"heading marker", "## Go Concurrency Basics", "Go Concurrency Basics"},
		{"trailing hash kept", "Learning C#", "Learning C#"},
		{"leading hash kept", "#golang Tips", "#golang Tips"},
		{"unpaired marker kept", "snake_case Names_", "snake_case Names_"},
		{"multiline", "Greeting Exchange\n\nThis title reflects...", "Greeting Exchange"},
		{"inner apostrophe kept", "Let's Talk Go", "Let's Talk Go"},
		{"whitespace", "  Greeting   Exchange  ", "Greeting Exchange"},
		{"trailing ellipsis", "Wetter in Berlin…", "Wetter in Berlin"},
		{"only punctuation", `"."`, ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestClean_CapsLength(t *testing.T) {
	got := Clean(strings.Repeat("ü", 200))
	assert.Equal(t, MaxRunes, utf8.RuneCountInString(got))
}

func TestClean_CapsAtWordBoundary(t *testing.T) {
	raw := strings.Repeat("Word ", 14) + "Wordy."
	got := Clean(raw)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxRunes)
	assert.Equal(t, strings.TrimSpace(strings.Repeat("Word ", 12)), got)
	assert.False(t, strings.HasSuffix(got, "."))
}

func TestPrompt(t *testing.T) {
	p := Prompt("Hello", "Hi there!", model.German)
	assert.Contains(t, p, `"German"`)
	assert.Contains(t, p, "3-5 word")
	assert.Contains(t, p, "User: Hello\nAI: Hi there!")
	assert.True(t, strings.HasSuffix(p, "TITLE:"))
}

func TestGenerate(t *testing.T) {
	p := &providertest.Scripted{Reply: `"Greeting Exchange."`}
	s := New(p, WithModel("small-model"))

	got, err := s.Generate(context.Background(), "Hello", "Hi there!", model.English)
	require.NoError(t, err)
	assert.Equal(t, "Greeting Exchange", got)

	reqs := p.CompleteRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "small-model", reqs[0].Model)
	assert.Equal(t, systemInstruction, reqs[0].System)
	require.NotNil(t, reqs[0].Temperature)
	assert.InDelta(t, 0.2, *reqs[0].Temperature, 0.0001)
	require.Len(t, reqs[0].Turns, 1)
	assert.Equal(t, model.RoleUser, reqs[0].Turns[0].Role)
	assert.Contains(t, reqs[0].Turns[0].Text, "User: Hello")
}

func TestGenerate_Error(t *testing.T) {
	boom := errors.New("rate limited")
	s := New(&providertest.Scripted{CompleteErr: boom}, WithTemperature(0.7))

	got, err := s.Generate(context.Background(), "Hello", "Hi", model.English)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, got)
}

func TestGenerate_EmptyReply(t *testing.T) {
	s := New(&providertest.Scripted{Reply: "   "})
	got, err := s.Generate(context.Background(), "Hello", "Hi", model.English)
	require.NoError(t, err)
	assert.Empty(t, got)
}
