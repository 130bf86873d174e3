// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// OPENAI-COMPATIBLE
// =============================================================================

// OpenAI talks to any endpoint implementing the chat completions API.
type OpenAI struct {
	client  *go_openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates an OpenAI-compatible backend. An empty BaseURL uses the
// public OpenAI API, which requires an API key.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.Wrap(ErrMissingAPIKey, "openai")
	}
	config := go_openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:  go_openai.NewClientWithConfig(config),
		model:   pickModel(cfg.Model, KindOpenAI.DefaultModel()),
		timeout: cfg.Timeout,
	}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return string(KindOpenAI) }

// Stream streams the reply with CreateChatCompletionStream.
func (o *OpenAI) Stream(ctx context.Context, req Request, emit EmitFunc) error {
	chatReq := o.request(req)
	chatReq.Stream = true

	stream, err := o.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return errors.Wrap(err, "openai stream")
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "openai stream")
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := emit(delta); err != nil {
				return err
			}
		}
	}
}

// Complete returns the whole reply from CreateChatCompletion.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, o.request(req))
	if err != nil {
		return "", errors.Wrap(err, "openai completion")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) request(req Request) go_openai.ChatCompletionRequest {
	messages := make([]go_openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, t := range req.Turns {
		messages = append(messages, go_openai.ChatCompletionMessage{
			Role:    openAIRole(t.Role),
			Content: t.Text,
		})
	}

	chatReq := go_openai.ChatCompletionRequest{
		Model:    pickModel(req.Model, o.model),
		Messages: messages,
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	return chatReq
}

func openAIRole(r model.Role) string {
	if r == model.RoleAssistant {
		return go_openai.ChatMessageRoleAssistant
	}
	return go_openai.ChatMessageRoleUser
}
