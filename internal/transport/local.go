// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"io"

	"github.com/jeranaias/lumen/internal/gateway"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/title"
)

// Local calls the gateway and title service in process.
type Local struct {
	gateway *gateway.Gateway
	titles  *title.Service
}

var _ Transport = (*Local)(nil)

// NewLocal creates an in-process transport.
func NewLocal(gw *gateway.Gateway, titles *title.Service) *Local {
	return &Local{gateway: gw, titles: titles}
}

// SendTurn opens the turn on the gateway.
func (l *Local) SendTurn(ctx context.Context, history []model.Message, lang model.Language) (io.ReadCloser, error) {
	turns := make([]model.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, m.Turn())
	}
	return l.gateway.Open(ctx, turns, lang)
}

// GenerateTitle calls the title service.
func (l *Local) GenerateTitle(ctx context.Context, firstUser, firstReply string, lang model.Language) (string, error) {
	return l.titles.Generate(ctx, firstUser, firstReply, lang)
}
