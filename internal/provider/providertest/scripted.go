// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package providertest provides a scripted provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/jeranaias/lumen/internal/provider"
)

// Scripted is a provider.Provider that replays fixed fragments.
type Scripted struct {
	// Fragments are emitted in order by Stream.
	Fragments []string

	// StreamErr, if set, is returned by Stream after FailAfter fragments.
	StreamErr error
	FailAfter int

	// Gate, if set, is received from before each fragment is emitted so a
	// test can hold the stream at a known point.
	Gate chan struct{}

	// Reply and CompleteErr are returned by Complete.
	Reply       string
	CompleteErr error

	mu       sync.Mutex
	streams  []provider.Request
	complete []provider.Request
}

var _ provider.Provider = (*Scripted)(nil)

// Name returns "scripted".
func (s *Scripted) Name() string { return "scripted" }

// Stream emits the scripted fragments.
func (s *Scripted) Stream(ctx context.Context, req provider.Request, emit provider.EmitFunc) error {
	s.mu.Lock()
	s.streams = append(s.streams, req)
	s.mu.Unlock()

	for i, frag := range s.Fragments {
		if s.StreamErr != nil && i == s.FailAfter {
			return s.StreamErr
		}
		if s.Gate != nil {
			select {
			case <-s.Gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(frag); err != nil {
			return err
		}
	}
	return s.StreamErr
}

// Complete returns Reply or CompleteErr.
func (s *Scripted) Complete(_ context.Context, req provider.Request) (string, error) {
	s.mu.Lock()
	s.complete = append(s.complete, req)
	s.mu.Unlock()
	return s.Reply, s.CompleteErr
}

// StreamRequests returns the requests passed to Stream.
func (s *Scripted) StreamRequests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Request(nil), s.streams...)
}

// CompleteRequests returns the requests passed to Complete.
func (s *Scripted) CompleteRequests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Request(nil), s.complete...)
}
