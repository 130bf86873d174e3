// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway adapts one conversation turn into a streaming model call.
//
// The gateway validates the history and language, attaches the
// language-specific system instruction and hands the turn to a Provider.
// Failures are classified as validation errors (nothing was sent to the
// model) or upstream errors (the model or its transport failed), and an
// upstream error records whether any fragment had already been delivered.
package gateway

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/provider"
)

// Gateway sends turns to a provider.
//
// The Gateway is safe for concurrent use.
type Gateway struct {
	provider provider.Provider
	model    string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithModel overrides the provider's default model for turns.
func WithModel(name string) Option {
	return func(g *Gateway) {
		g.model = name
	}
}

// New creates a Gateway over p.
func New(p provider.Provider, opts ...Option) *Gateway {
	g := &Gateway{provider: p}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the underlying provider.
func (g *Gateway) Provider() provider.Provider {
	return g.provider
}

// Prepare validates a turn and builds the provider request.
func (g *Gateway) Prepare(history []model.Turn, lang model.Language) (provider.Request, error) {
	if len(history) == 0 {
		return provider.Request{}, validationError(MsgMissingMessages, nil)
	}
	if !lang.Valid() {
		return provider.Request{}, validationError(MsgUnsupportedLang, nil)
	}
	for _, t := range history {
		if !t.Role.Valid() {
			return provider.Request{}, validationError(MsgInvalidRole, nil)
		}
	}

	return provider.Request{
		Model:  g.model,
		System: locale.SystemInstruction(lang),
		Turns:  append([]model.Turn(nil), history...),
	}, nil
}

// SendTurn streams the reply to history, calling emit once per fragment in
// order. Errors returned by emit are passed back unchanged.
func (g *Gateway) SendTurn(ctx context.Context, history []model.Turn, lang model.Language, emit provider.EmitFunc) error {
	req, err := g.Prepare(history, lang)
	if err != nil {
		return err
	}
	return g.stream(ctx, req, emit)
}

func (g *Gateway) stream(ctx context.Context, req provider.Request, emit provider.EmitFunc) error {
	start := time.Now()
	var (
		fragments int
		bytes     int
		emitErr   error
	)

	err := g.provider.Stream(ctx, req, func(frag string) error {
		fragments++
		bytes += len(frag)
		if err := emit(frag); err != nil {
			emitErr = err
			return err
		}
		return nil
	})

	event := log.Debug()
	if err != nil && emitErr == nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("provider", g.provider.Name()).
		Int("turns", len(req.Turns)).
		Int("fragments", fragments).
		Int("bytes", bytes).
		Dur("elapsed", time.Since(start)).
		Msg("turn streamed")

	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		return &Error{Kind: KindUpstream, Message: "model stream failed", Cause: err, Started: fragments > 0}
	}
	return nil
}

// =============================================================================
// BYTE STREAM ADAPTER
// =============================================================================

// Open starts a turn and returns its reply as a byte stream.
//
// Open blocks until the first fragment arrives or the stream ends, so a turn
// that fails before producing anything returns its error here, the way an
// HTTP error status would. A failure after that surfaces as a read error.
// Closing the returned reader cancels the model call.
func (g *Gateway) Open(ctx context.Context, history []model.Turn, lang model.Language) (io.ReadCloser, error) {
	req, err := g.Prepare(history, lang)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()

	first := make(chan error, 1)
	var once sync.Once
	signal := func(err error) {
		once.Do(func() { first <- err })
	}

	go func() {
		defer cancel()
		err := g.stream(ctx, req, func(frag string) error {
			signal(nil)
			_, err := pw.Write([]byte(frag))
			return err
		})
		signal(err)
		pw.CloseWithError(err)
	}()

	if err := <-first; err != nil {
		cancel()
		pr.Close()
		return nil, err
	}
	return &body{PipeReader: pr, cancel: cancel}, nil
}

type body struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (b *body) Close() error {
	b.cancel()
	return b.PipeReader.Close()
}
