// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// GEMINI
// =============================================================================

// Gemini talks to the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini backend. cfg.BaseURL is optional.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrap(ErrMissingAPIKey, "gemini")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	return &Gemini{
		client:  client,
		model:   pickModel(cfg.Model, KindGemini.DefaultModel()),
		timeout: cfg.Timeout,
	}, nil
}

// Name returns "gemini".
func (g *Gemini) Name() string { return string(KindGemini) }

// Stream streams the reply with GenerateContentStream.
func (g *Gemini) Stream(ctx context.Context, req Request, emit EmitFunc) error {
	contents := geminiContents(req.Turns)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, pickModel(req.Model, g.model), contents, geminiConfig(req)) {
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "gemini stream")
		}
		if text := resp.Text(); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// Complete returns the whole reply from GenerateContent.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, pickModel(req.Model, g.model), geminiContents(req.Turns), geminiConfig(req))
	if err != nil {
		return "", errors.Wrap(err, "gemini generate")
	}
	return resp.Text(), nil
}

// geminiRole maps the closed role set onto Gemini's vocabulary.
func geminiRole(r model.Role) genai.Role {
	if r == model.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func geminiContents(turns []model.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, genai.NewContentFromText(t.Text, geminiRole(t.Role)))
	}
	return contents
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return cfg
}
