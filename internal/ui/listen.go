// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import "github.com/jeranaias/lumen/internal/store"

// listen subscribes to st and returns a channel that receives a signal after
// each change. Signals coalesce: a burst of changes while the UI is busy
// results in one pending signal, and the notifying goroutine never blocks.
func listen(st *store.Store) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	unsubscribe := st.OnChange(func(store.Change) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch, unsubscribe
}
