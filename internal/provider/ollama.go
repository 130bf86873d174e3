// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/ollama"
)

// =============================================================================
// OLLAMA
// =============================================================================

// Ollama talks to a local Ollama server.
type Ollama struct {
	client *ollama.Client
}

// NewOllama creates an Ollama backend. Empty fields use the client defaults.
func NewOllama(cfg Config) *Ollama {
	return &Ollama{client: ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		DefaultModel: cfg.Model,
	})}
}

// Name returns "ollama".
func (o *Ollama) Name() string { return string(KindOllama) }

// Stream streams the reply from /api/chat.
func (o *Ollama) Stream(ctx context.Context, req Request, emit EmitFunc) error {
	err := o.client.ChatStream(ctx, req.Model, ollamaMessages(req), ollamaOptions(req), func(chunk ollama.StreamChunk) error {
		if chunk.Done {
			log.Debug().
				Str("model", chunk.Model).
				Int("completion_tokens", chunk.CompletionTokens).
				Dur("total", chunk.TotalDuration).
				Float64("tokens_per_second", chunk.TokensPerSecond()).
				Msg("ollama stream done")
		}
		if chunk.Content == "" {
			return nil
		}
		return emit(chunk.Content)
	})
	if err != nil {
		return errors.Wrap(err, "ollama stream")
	}
	return nil
}

// Complete returns the whole reply from a non-streaming /api/chat call.
func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat(ctx, req.Model, ollamaMessages(req), ollamaOptions(req))
	if err != nil {
		return "", errors.Wrap(err, "ollama chat")
	}
	log.Debug().
		Str("model", resp.Model).
		Int("completion_tokens", resp.EvalCount).
		Float64("tokens_per_second", resp.TokensPerSecond()).
		Msg("ollama chat done")
	return resp.Message.Content, nil
}

func ollamaMessages(req Request) []ollama.Message {
	msgs := make([]ollama.Message, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, ollama.NewSystemMessage(req.System))
	}
	for _, t := range req.Turns {
		if t.Role == model.RoleAssistant {
			msgs = append(msgs, ollama.NewAssistantMessage(t.Text))
		} else {
			msgs = append(msgs, ollama.NewUserMessage(t.Text))
		}
	}
	return msgs
}

func ollamaOptions(req Request) *ollama.Options {
	if req.Temperature == nil {
		return nil
	}
	return &ollama.Options{Temperature: float64(*req.Temperature)}
}
