// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider adapts generative model backends to one streaming
// interface.
//
// A Provider takes a system instruction and an ordered history of turns and
// emits the reply as text fragments, in order, as the backend produces them.
// Three backends are supported: Gemini (google.golang.org/genai), any
// OpenAI-compatible endpoint (github.com/sashabaranov/go-openai), and a
// local Ollama server.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// INTERFACE
// =============================================================================

// Request is one model invocation.
type Request struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// System is the system instruction. May be empty.
	System string

	// Turns is the conversation history, oldest first.
	Turns []model.Turn

	// Temperature overrides the backend default when non-nil.
	Temperature *float32
}

// EmitFunc receives one text fragment. Returning an error stops the stream.
type EmitFunc func(fragment string) error

// Provider is a generative model backend.
type Provider interface {
	// Name identifies the backend in logs.
	Name() string

	// Stream calls emit for each non-empty fragment of the reply, in order,
	// and returns when the reply is complete. emit is never called
	// concurrently and the next fragment is not requested until it returns.
	Stream(ctx context.Context, req Request, emit EmitFunc) error

	// Complete returns the full reply in one piece.
	Complete(ctx context.Context, req Request) (string, error)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Kind names a backend.
type Kind string

const (
	KindGemini Kind = "gemini"
	KindOpenAI Kind = "openai"
	KindOllama Kind = "ollama"
)

// Kinds lists the supported backends.
var Kinds = []Kind{KindGemini, KindOpenAI, KindOllama}

// Valid reports whether k is a supported backend.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind parses a backend name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Errorf("unknown provider %q (want gemini, openai or ollama)", s)
	}
	return k, nil
}

// DefaultModel returns the model used when none is configured.
func (k Kind) DefaultModel() string {
	switch k {
	case KindGemini:
		return "gemini-2.5-flash"
	case KindOpenAI:
		return "gpt-4o-mini"
	case KindOllama:
		return "llama3.2"
	default:
		return ""
	}
}

// Config selects and configures a backend.
type Config struct {
	Kind    Kind
	Model   string
	APIKey  string
	BaseURL string

	// Timeout bounds non-streaming calls. Zero means no limit.
	Timeout time.Duration
}

// ErrMissingAPIKey is returned when a hosted backend has no credentials.
var ErrMissingAPIKey = errors.New("provider API key is not set")

// New constructs the configured backend.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = cfg.Kind.DefaultModel()
	}

	switch cfg.Kind {
	case KindGemini:
		return NewGemini(ctx, cfg)
	case KindOpenAI:
		return NewOpenAI(cfg)
	case KindOllama:
		return NewOllama(cfg), nil
	default:
		return nil, errors.Errorf("unknown provider %q", cfg.Kind)
	}
}

func pickModel(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
