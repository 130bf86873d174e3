// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists lumen state in a small key-value store.
//
// Three independent entries are kept: the ordered conversation list, the
// active conversation id and the selected language. Each is loaded
// independently and falls back to its default when missing or unreadable,
// so a corrupt entry never takes the others down with it.
//
// # Backends
//
//   - FileKV: one JSON file per key, written atomically
//   - SQLiteKV: a single kv table in a pure-Go SQLite database
//
// # Usage
//
//	kv, err := storage.Open(storage.BackendFile, "~/.lumen/state")
//	states := storage.NewStateStore(kv)
//	state, err := states.Load(ctx)
//	st := store.New(state, store.WithPersister(states))
package storage
