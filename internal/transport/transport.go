// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport carries turns and title requests from the client side
// to the model gateway, either over HTTP or in process.
//
// Both transports share the same contract: SendTurn returns an error
// immediately when the turn cannot start, otherwise a body whose bytes are
// the reply text. A failure after the reply has started is reported as a
// read error on that body.
package transport

import (
	"context"
	"io"

	"github.com/jeranaias/lumen/internal/model"
)

// Transport is what the send orchestrator talks to.
type Transport interface {
	// SendTurn starts a turn for history and returns the raw reply bytes.
	// The caller must close the body.
	SendTurn(ctx context.Context, history []model.Message, lang model.Language) (io.ReadCloser, error)

	// GenerateTitle returns a title for the first exchange, possibly empty.
	GenerateTitle(ctx context.Context, firstUser, firstReply string, lang model.Language) (string, error)
}
