// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
)

// markdown renders assistant replies with glamour. Rendered output is cached
// per message and reused while the text and width are unchanged.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]rendered
}

type rendered struct {
	text string
	out  string
}

func newMarkdown(style string) *markdown {
	return &markdown{style: style, cache: make(map[string]rendered)}
}

// setWidth rebuilds the renderer for a new wrap width.
func (m *markdown) setWidth(width int) {
	if width == m.width && m.renderer != nil {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(err).Str("style", m.style).Msg("markdown renderer unavailable")
		r = nil
	}
	m.width = width
	m.renderer = r
	m.cache = make(map[string]rendered)
}

// render returns text rendered as markdown, or text unchanged if rendering
// is unavailable or fails.
func (m *markdown) render(id, text string) string {
	if m.renderer == nil {
		return text
	}
	if c, ok := m.cache[id]; ok && c.text == text {
		return c.out
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	m.cache[id] = rendered{text: text, out: out}
	return out
}
