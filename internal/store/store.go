// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the application state: the ordered set of
// conversations, the active conversation pointer, the selected language and
// the single-flight send flag.
//
// Every mutation is an atomic transform applied under one lock, so readers
// always observe a complete snapshot. Operations addressed to a conversation
// that no longer exists are silently ignored; deletion racing with a send is
// expected and must never surface as an error.
package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

// ChangeKind identifies which transform produced a Change.
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeDeleted
	ChangeActivated
	ChangeMessageAppended
	ChangeMessageUpdated
	ChangeRenamed
	ChangeLanguage
	ChangeInFlight
)

// String returns the name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeDeleted:
		return "deleted"
	case ChangeActivated:
		return "activated"
	case ChangeMessageAppended:
		return "message_appended"
	case ChangeMessageUpdated:
		return "message_updated"
	case ChangeRenamed:
		return "renamed"
	case ChangeLanguage:
		return "language"
	case ChangeInFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Change describes an applied transform.
type Change struct {
	Kind           ChangeKind
	ConversationID string
	MessageID      string
}

// Persister writes full state snapshots to durable storage.
type Persister interface {
	Save(ctx context.Context, state model.State) error
}

// =============================================================================
// STORE
// =============================================================================

// Store is the single source of truth for conversation data.
//
// The Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	state   model.State
	version uint64

	persister     Persister
	persistMu     sync.Mutex
	lastPersisted uint64

	listenersMu  sync.RWMutex
	listeners    map[int]func(Change)
	nextListener int
}

// Option configures a Store.
type Option func(*Store)

// WithPersister makes the store write a snapshot after every persistent change.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

// New creates a store seeded with initial, normalizing the active pointer.
func New(initial model.State, opts ...Option) *Store {
	state := initial.Clone()
	state.InFlight = false
	state.Normalize()

	s := &Store{
		state:     state,
		listeners: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Conversation returns a copy of one conversation.
func (s *Store) Conversation(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return s.state.Conversations[idx].Clone(), true
}

// ActiveID returns the active conversation ID, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveConversationID
}

// Language returns the selected language.
func (s *Store) Language() model.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Language
}

// InFlight reports whether a send is currently streaming.
func (s *Store) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InFlight
}

// =============================================================================
// TRANSFORMS
// =============================================================================

// CreateConversation prepends a new empty conversation and activates it.
func (s *Store) CreateConversation(defaultName string) string {
	conv := model.NewConversation(defaultName)

	s.apply(func(st *model.State) (Change, bool) {
		st.Conversations = append([]model.Conversation{conv}, st.Conversations...)
		st.ActiveConversationID = conv.ID
		return Change{Kind: ChangeCreated, ConversationID: conv.ID}, true
	})
	return conv.ID
}

// DeleteConversation removes a conversation. If it was active, the first
// remaining conversation becomes active, or none if the list is empty.
func (s *Store) DeleteConversation(id string) {
	s.apply(func(st *model.State) (Change, bool) {
		idx := indexOf(st, id)
		if idx < 0 {
			return Change{}, false
		}
		st.Conversations = append(st.Conversations[:idx:idx], st.Conversations[idx+1:]...)
		if st.ActiveConversationID == id {
			st.ActiveConversationID = ""
			if len(st.Conversations) > 0 {
				st.ActiveConversationID = st.Conversations[0].ID
			}
		}
		return Change{Kind: ChangeDeleted, ConversationID: id}, true
	})
}

// SetActive switches the active conversation. An empty id clears it,
// which is immediately corrected to the first conversation if any exist.
// Unknown ids are ignored.
func (s *Store) SetActive(id string) {
	s.apply(func(st *model.State) (Change, bool) {
		if id != "" && indexOf(st, id) < 0 {
			return Change{}, false
		}
		prev := st.ActiveConversationID
		st.ActiveConversationID = id
		st.Normalize()
		if st.ActiveConversationID == prev {
			return Change{}, false
		}
		return Change{Kind: ChangeActivated, ConversationID: st.ActiveConversationID}, true
	})
}

// AppendMessage appends msg to a conversation. No-op if the conversation is
// gone or already holds a message with the same ID.
func (s *Store) AppendMessage(conversationID string, msg model.Message) bool {
	return s.apply(func(st *model.State) (Change, bool) {
		idx := indexOf(st, conversationID)
		if idx < 0 {
			return Change{}, false
		}
		conv := &st.Conversations[idx]
		if conv.IndexOf(msg.ID) >= 0 {
			return Change{}, false
		}
		conv.Messages = append(conv.Messages, msg)
		return Change{Kind: ChangeMessageAppended, ConversationID: conversationID, MessageID: msg.ID}, true
	})
}

// UpdateMessageText replaces the full text of a message. Callers pass the
// complete accumulated text, never a delta.
func (s *Store) UpdateMessageText(conversationID, messageID, text string) bool {
	return s.apply(func(st *model.State) (Change, bool) {
		idx := indexOf(st, conversationID)
		if idx < 0 {
			return Change{}, false
		}
		conv := &st.Conversations[idx]
		mi := conv.IndexOf(messageID)
		if mi < 0 {
			return Change{}, false
		}
		conv.Messages[mi].Text = text
		return Change{Kind: ChangeMessageUpdated, ConversationID: conversationID, MessageID: messageID}, true
	})
}

// RenameConversation sets a conversation's name. No-op if it is gone.
func (s *Store) RenameConversation(id, name string) bool {
	return s.apply(func(st *model.State) (Change, bool) {
		idx := indexOf(st, id)
		if idx < 0 {
			return Change{}, false
		}
		st.Conversations[idx].Name = name
		return Change{Kind: ChangeRenamed, ConversationID: id}, true
	})
}

// SetLanguage selects the UI and response language. Invalid values are ignored.
func (s *Store) SetLanguage(lang model.Language) {
	s.apply(func(st *model.State) (Change, bool) {
		if !lang.Valid() || st.Language == lang {
			return Change{}, false
		}
		st.Language = lang
		return Change{Kind: ChangeLanguage}, true
	})
}

// BeginSend claims the application-wide single-flight slot.
// Returns false if a send is already in flight.
func (s *Store) BeginSend() bool {
	return s.apply(func(st *model.State) (Change, bool) {
		if st.InFlight {
			return Change{}, false
		}
		st.InFlight = true
		return Change{Kind: ChangeInFlight}, true
	})
}

// EndSend releases the single-flight slot.
func (s *Store) EndSend() {
	s.apply(func(st *model.State) (Change, bool) {
		if !st.InFlight {
			return Change{}, false
		}
		st.InFlight = false
		return Change{Kind: ChangeInFlight}, true
	})
}

// =============================================================================
// LISTENERS
// =============================================================================

// OnChange registers fn to be called after every applied transform.
// fn runs on the mutating goroutine after the lock is released and must not
// block. The returned function unregisters the listener.
func (s *Store) OnChange(fn func(Change)) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

// apply runs fn under the state lock, then persists and notifies if fn
// reports a change.
func (s *Store) apply(fn func(st *model.State) (Change, bool)) bool {
	s.mu.Lock()
	change, changed := fn(&s.state)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.version++
	version := s.version
	var snapshot model.State
	persist := s.persister != nil && change.Kind != ChangeInFlight
	if persist {
		snapshot = s.state.Clone()
	}
	s.mu.Unlock()

	if persist {
		s.persist(version, snapshot)
	}
	s.notify(change)
	return true
}

// persist writes snapshot unless a newer one has already been written.
func (s *Store) persist(version uint64, snapshot model.State) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if version <= s.lastPersisted {
		return
	}
	if err := s.persister.Save(context.Background(), snapshot); err != nil {
		log.Warn().Err(err).Uint64("version", version).Msg("failed to persist state")
		return
	}
	s.lastPersisted = version
}

func (s *Store) notify(change Change) {
	s.listenersMu.RLock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (s *Store) indexLocked(id string) int {
	return indexOf(&s.state, id)
}

func indexOf(st *model.State, id string) int {
	if id == "" {
		return -1
	}
	for i := range st.Conversations {
		if st.Conversations[i].ID == id {
			return i
		}
	}
	return -1
}
