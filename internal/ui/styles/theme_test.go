// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThemeExplicitMode(t *testing.T) {
	tests := []struct {
		name   string
		dark   bool
		glamor string
	}{
		{"dark", true, "dark"},
		{"DARK", true, "dark"},
		{"light", false, "light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := NewTheme(tt.name)
			assert.Equal(t, tt.dark, theme.IsDark)
			assert.Equal(t, tt.glamor, theme.GlamourStyle())
		})
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme(ThemeDark)
	for name, style := range map[string]interface{ Render(...string) string }{
		"Header":          theme.Header,
		"Sidebar":         theme.Sidebar,
		"UserBubble":      theme.UserBubble,
		"AssistantBubble": theme.AssistantBubble,
		"ErrorBubble":     theme.ErrorBubble,
		"InputContainer":  theme.InputContainer,
		"StatusBar":       theme.StatusBar,
	} {
		assert.Contains(t, style.Render("test"), "test", name)
	}
}
