// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// redrawInterval caps store-driven redraws at about 30 per second. Changes
// arriving faster coalesce into the next redraw.
const redrawInterval = 33 * time.Millisecond

// Run shows the chat screen until the user quits or ctx is cancelled.
// Sends still streaming when the screen closes are cancelled and waited for.
func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil || opts.Orchestrator == nil {
		return errors.New("ui: store and orchestrator are required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sends sync.WaitGroup
	defer sends.Wait()
	defer cancel()

	changes, unsubscribe := listen(opts.Store)
	defer unsubscribe()

	p := tea.NewProgram(NewModel(ctx, opts, &sends), tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		_, err := p.Run()
		return errors.Wrap(err, "run terminal ui")
	})
	g.Go(func() error {
		return forward(gctx, done, changes, rate.NewLimiter(rate.Every(redrawInterval), 1), func() {
			p.Send(stateChangedMsg{})
		}, p.Quit)
	})
	return g.Wait()
}

// forward calls redraw for each change signal, at most as often as limiter
// allows, until done closes. If ctx ends first it calls quit.
func forward(ctx context.Context, done <-chan struct{}, changes <-chan struct{}, limiter *rate.Limiter, redraw, quit func()) error {
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			quit()
			return nil
		case <-changes:
			if err := limiter.Wait(ctx); err != nil {
				quit()
				return nil
			}
			redraw()
		}
	}
}
