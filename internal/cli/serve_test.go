// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/provider/providertest"
)

func fakeOllama(t *testing.T, tags string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(tags))
			return
		}
		w.Write([]byte("Ollama is running"))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestCheckBackend(t *testing.T) {
	url := fakeOllama(t, `{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5:7b"}]}`)
	ctx := context.Background()

	tests := []struct {
		name    string
		model   string
		wantErr string
	}{
		{"untagged matches latest", "llama3.2", ""},
		{"exact tag", "qwen2.5:7b", ""},
		{"missing model", "mistral", `model "mistral" is not pulled`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := provider.NewOllama(provider.Config{BaseURL: url, Model: tt.model})
			err := checkBackend(ctx, p, url, tt.model)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := provider.NewOllama(provider.Config{BaseURL: url})
	assert.Error(t, checkBackend(context.Background(), p, url, "llama3.2"))
}

func TestCheckBackend_SkipsOtherProviders(t *testing.T) {
	assert.NoError(t, checkBackend(context.Background(), &providertest.Scripted{}, "http://127.0.0.1:1", "x"))
}
