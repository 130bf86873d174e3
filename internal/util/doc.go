// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across lumen.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight: Terminal-cell aware truncation for the TUI
//   - SingleLine: Whitespace collapsing for previews and titles
//
// # Usage
//
//	// Persist a state key without risking a half-written file
//	err := util.AtomicWriteFile(path, data, 0o600)
//
//	// Fit a conversation name in the sidebar
//	label := util.PadRight(conv.Name, 24)
package util
