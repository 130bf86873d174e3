// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jeranaias/lumen/internal/model"
)

var history = []model.Turn{
	{Role: model.RoleUser, Text: "Hello"},
	{Role: model.RoleAssistant, Text: "Hi!"},
	{Role: model.RoleUser, Text: "How are you?"},
}

func collect(t *testing.T, p Provider, req Request) ([]string, error) {
	t.Helper()
	var got []string
	err := p.Stream(context.Background(), req, func(frag string) error {
		got = append(got, frag)
		return nil
	})
	return got, err
}

func sse(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		fmt.Fprintf(w, "data: %s\n\n", e)
		w.(http.Flusher).Flush()
	}
}

// =============================================================================
// KIND TESTS
// =============================================================================

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"gemini", KindGemini, false},
		{" OpenAI ", KindOpenAI, false},
		{"ollama", KindOllama, false},
		{"claude", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: KindGemini})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(context.Background(), Config{Kind: KindOpenAI})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	p, err := New(context.Background(), Config{Kind: KindOllama})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = New(context.Background(), Config{Kind: "nope"})
	assert.Error(t, err)
}

// =============================================================================
// GEMINI TESTS
// =============================================================================

func TestGeminiContents_RoleMapping(t *testing.T) {
	contents := geminiContents(history)
	require.Len(t, contents, 3)

	roles := make([]string, len(contents))
	for i, c := range contents {
		roles[i] = c.Role
		require.Len(t, c.Parts, 1)
		assert.Equal(t, history[i].Text, c.Parts[0].Text)
	}
	assert.Equal(t, []string{"user", "model", "user"}, roles)
}

func TestGeminiConfig(t *testing.T) {
	temp := float32(0.2)
	cfg := geminiConfig(Request{System: "Respond in German.", Temperature: &temp})
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "Respond in German.", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 0.0001)

	assert.Nil(t, geminiConfig(Request{}).SystemInstruction)
}

func TestGemini_Stream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:streamGenerateContent")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		chunk := func(text string) string {
			return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
		}
		sse(w, chunk("Hi"), chunk(" there"), chunk("!"))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-test"})
	require.NoError(t, err)

	got, err := collect(t, g, Request{System: "Be nice.", Turns: history})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there", "!"}, got)

	contents, ok := body["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 3)
	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiRole(t *testing.T) {
	assert.Equal(t, genai.Role(genai.RoleUser), geminiRole(model.RoleUser))
	assert.Equal(t, genai.Role(genai.RoleModel), geminiRole(model.RoleAssistant))
}

// =============================================================================
// OPENAI TESTS
// =============================================================================

func TestOpenAI_Stream(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		delta := func(text string) string {
			return fmt.Sprintf(`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q}}]}`, text)
		}
		sse(w, delta("Hi"), delta(""), delta(" there"), delta("!"), "[DONE]")
	}))
	defer srv.Close()

	o, err := NewOpenAI(Config{BaseURL: srv.URL + "/v1", Model: "local-model"})
	require.NoError(t, err)

	got, err := collect(t, o, Request{System: "Be nice.", Turns: history})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there", "!"}, got)

	assert.Equal(t, "local-model", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
}

func TestOpenAI_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Greeting Exchange"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(Config{BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	got, err := o.Complete(context.Background(), Request{Turns: history[:1]})
	require.NoError(t, err)
	assert.Equal(t, "Greeting Exchange", got)
}

func TestOpenAI_StreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(Config{BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	got, err := collect(t, o, Request{Turns: history})
	assert.Error(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// OLLAMA TESTS
// =============================================================================

func TestOllama_Stream(t *testing.T) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, part := range []string{"Hi", " there", "!"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", part)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	o := NewOllama(Config{BaseURL: srv.URL, Model: "llama3.2"})
	got, err := collect(t, o, Request{System: "Respond in Spanish.", Turns: history})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there", "!"}, got)

	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "Respond in Spanish.", req.Messages[0].Content)
	assert.Equal(t, "assistant", req.Messages[2].Role)
}

func TestOllamaOptions(t *testing.T) {
	assert.Nil(t, ollamaOptions(Request{}))
	temp := float32(0.5)
	assert.InDelta(t, 0.5, ollamaOptions(Request{Temperature: &temp}).Temperature, 0.0001)
}
