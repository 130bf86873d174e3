// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the lumen TUI.
//
// All colors are lipgloss.AdaptiveColor values. NewTheme picks the light or
// dark variant from the configured theme name, or from the terminal
// background when the name is "auto".
package styles
