// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/model"
)

// Persisted keys.
const (
	KeyConversations = "conversations"
	KeyActiveID      = "activeConversationId"
	KeyLanguage      = "language"
)

// =============================================================================
// STATE STORE
// =============================================================================

// StateStore loads and saves full state snapshots through a KV.
// It satisfies store.Persister.
type StateStore struct {
	kv KV
}

// NewStateStore wraps kv.
func NewStateStore(kv KV) *StateStore {
	return &StateStore{kv: kv}
}

// Load reads the three state entries. Each missing or unreadable entry falls
// back to its default independently; only backend I/O failures are returned.
// The returned state is normalized.
func (s *StateStore) Load(ctx context.Context) (model.State, error) {
	state := model.State{
		Conversations: []model.Conversation{},
		Language:      model.DefaultLanguage,
	}

	if raw, ok, err := s.kv.Get(ctx, KeyConversations); err != nil {
		return model.State{}, err
	} else if ok {
		var convs []model.Conversation
		if err := json.Unmarshal(raw, &convs); err != nil {
			log.Warn().Err(err).Str("key", KeyConversations).Msg("discarding unreadable state entry")
		} else if convs != nil {
			state.Conversations = convs
		}
	}

	if raw, ok, err := s.kv.Get(ctx, KeyActiveID); err != nil {
		return model.State{}, err
	} else if ok {
		var active *string
		if err := json.Unmarshal(raw, &active); err != nil {
			log.Warn().Err(err).Str("key", KeyActiveID).Msg("discarding unreadable state entry")
		} else if active != nil {
			state.ActiveConversationID = *active
		}
	}

	if raw, ok, err := s.kv.Get(ctx, KeyLanguage); err != nil {
		return model.State{}, err
	} else if ok {
		var tag string
		if err := json.Unmarshal(raw, &tag); err != nil {
			log.Warn().Err(err).Str("key", KeyLanguage).Msg("discarding unreadable state entry")
		} else {
			state.Language = model.ParseLanguageOrDefault(tag)
		}
	}

	state.Normalize()
	return state, nil
}

// Save writes a full snapshot. The in-flight flag is never persisted.
func (s *StateStore) Save(ctx context.Context, state model.State) error {
	convs := state.Conversations
	if convs == nil {
		convs = []model.Conversation{}
	}
	convData, err := json.Marshal(convs)
	if err != nil {
		return errors.Wrap(err, "encode conversations")
	}

	var active *string
	if state.ActiveConversationID != "" {
		active = &state.ActiveConversationID
	}
	activeData, err := json.Marshal(active)
	if err != nil {
		return errors.Wrap(err, "encode active conversation")
	}

	langData, err := json.Marshal(string(state.Language))
	if err != nil {
		return errors.Wrap(err, "encode language")
	}

	return s.kv.SetMany(ctx, map[string][]byte{
		KeyConversations: convData,
		KeyActiveID:      activeData,
		KeyLanguage:      langData,
	})
}

// Close closes the underlying KV.
func (s *StateStore) Close() error {
	return s.kv.Close()
}
