// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/gateway"
	"github.com/jeranaias/lumen/internal/locale"
	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/orchestrator"
	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/storage"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/title"
	"github.com/jeranaias/lumen/internal/transport"
)

// newProvider builds the model backend. Tests replace it.
var newProvider = provider.New

// =============================================================================
// APP WIRING
// =============================================================================

// App holds the components a command needs. Fields a command does not ask
// for stay nil.
type App struct {
	Config *config.Config

	State *storage.StateStore
	Store *store.Store

	Provider     provider.Provider
	Gateway      *gateway.Gateway
	Titles       *title.Service
	Transport    transport.Transport
	Orchestrator *orchestrator.Orchestrator
}

// openStore loads persisted state and wires the store to save every change.
func openStore(ctx context.Context, cfg *config.Config) (*App, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(storage.Backend(cfg.Storage.Backend), path)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}

	state := storage.NewStateStore(kv)
	initial, err := state.Load(ctx)
	if err != nil {
		state.Close()
		return nil, errors.Wrap(err, "load state")
	}

	log.Debug().
		Str("backend", cfg.Storage.Backend).
		Str("path", path).
		Int("conversations", len(initial.Conversations)).
		Msg("state loaded")

	return &App{
		Config: cfg,
		State:  state,
		Store:  store.New(initial, store.WithPersister(state)),
	}, nil
}

// openModel builds the provider, gateway and title service.
func (a *App) openModel(ctx context.Context) error {
	cfg := a.Config
	kind, err := provider.ParseKind(cfg.Provider.Kind)
	if err != nil {
		return err
	}
	p, err := newProvider(ctx, provider.Config{
		Kind:    kind,
		Model:   cfg.Provider.Model,
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Timeout: cfg.ProviderTimeout(),
	})
	if err != nil {
		return errors.Wrapf(err, "create %s provider", kind)
	}

	a.Provider = p
	a.Gateway = gateway.New(p, gateway.WithModel(cfg.Provider.Model))

	titleModel := cfg.Provider.TitleModel
	if titleModel == "" {
		titleModel = cfg.Provider.Model
	}
	a.Titles = title.New(p,
		title.WithModel(titleModel),
		title.WithTemperature(float32(cfg.Provider.TitleTemperature)),
	)
	return nil
}

// openClient wires the transport and orchestrator according to client.mode.
func (a *App) openClient(ctx context.Context) error {
	switch strings.ToLower(a.Config.Client.Mode) {
	case config.ModeHTTP:
		a.Transport = transport.NewHTTP(a.Config.Client.ServerURL)
	default:
		if err := a.openModel(ctx); err != nil {
			return err
		}
		a.Transport = transport.NewLocal(a.Gateway, a.Titles)
	}

	a.Orchestrator = orchestrator.New(a.Store, a.Transport,
		orchestrator.WithCancelOnDelete(a.Config.Client.CancelOnDelete),
	)
	return nil
}

// ensureConversation returns the active conversation id, creating one if
// the store is empty.
func (a *App) ensureConversation() string {
	if id := a.Store.ActiveID(); id != "" {
		return id
	}
	return a.Store.CreateConversation(locale.NewChatName(a.Store.Language()))
}

// resolveConversation finds a conversation by full id or unique prefix.
func (a *App) resolveConversation(ref string) (model.Conversation, error) {
	snap := a.Store.Snapshot()
	var matches []model.Conversation
	for _, conv := range snap.Conversations {
		if conv.ID == ref {
			return conv, nil
		}
		if strings.HasPrefix(conv.ID, ref) {
			matches = append(matches, conv)
		}
	}
	switch len(matches) {
	case 0:
		return model.Conversation{}, &NotFoundError{Resource: "conversation", ID: ref}
	case 1:
		return matches[0], nil
	default:
		return model.Conversation{}, &AmbiguousError{Prefix: ref, Matches: len(matches)}
	}
}

// Close waits for background work and releases storage.
func (a *App) Close() error {
	if a.Orchestrator != nil {
		a.Orchestrator.Close()
	}
	if a.State != nil {
		return a.State.Close()
	}
	return nil
}
