// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui implements the terminal chat screen.
//
// The screen shows the conversation list on the left, the active
// conversation on the right and an input box below. It reads everything it
// displays from store snapshots; a store listener wakes the Bubble Tea
// program after each change. Submitting the input calls the orchestrator,
// which streams the reply into the store.
//
// # Key Bindings
//
//   - Enter: send the message (or open the selected chat in the list)
//   - Ctrl+N: new chat
//   - Ctrl+X: delete the active (or selected) chat
//   - Ctrl+L: next language
//   - Tab: move focus between the chat list and the input
//   - F1: full help
//   - Ctrl+C: quit
package ui
