// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package title derives a short conversation title from its first exchange.
package title

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/lumen/internal/model"
	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/util"
)

// DefaultTemperature keeps titles close to deterministic.
const DefaultTemperature float32 = 0.2

// MaxRunes caps the length of a stored title.
const MaxRunes = 60

const systemInstruction = `You are an expert at creating concise, relevant titles for conversations. ` +
	`Respond ONLY with the generated title, without any extra text, quotation marks, or labels like "TITLE:".`

// Service asks a provider for titles.
type Service struct {
	provider    provider.Provider
	model       string
	temperature float32
}

// Option configures a Service.
type Option func(*Service)

// WithModel selects a model for titles, e.g. a cheaper one than for turns.
func WithModel(name string) Option {
	return func(s *Service) {
		s.model = name
	}
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float32) Option {
	return func(s *Service) {
		s.temperature = t
	}
}

// New creates a Service.
func New(p provider.Provider, opts ...Option) *Service {
	s := &Service{provider: p, temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns a cleaned title, or "" when the model produced nothing
// usable. Errors are returned for the caller to log; there are no retries.
func (s *Service) Generate(ctx context.Context, firstUser, firstReply string, lang model.Language) (string, error) {
	start := time.Now()
	temp := s.temperature
	raw, err := s.provider.Complete(ctx, provider.Request{
		Model:       s.model,
		System:      systemInstruction,
		Turns:       []model.Turn{{Role: model.RoleUser, Text: Prompt(firstUser, firstReply, lang)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}

	title := Clean(raw)
	log.Debug().
		Str("provider", s.provider.Name()).
		Str("title", title).
		Dur("elapsed", time.Since(start)).
		Msg("title generated")
	return title, nil
}

// Prompt builds the title request for the first exchange of a conversation.
func Prompt(firstUser, firstReply string, lang model.Language) string {
	return fmt.Sprintf("Based on the following conversation, create a short, 3-5 word summary title "+
		"for the chat in the language %q. The title should be concise and accurately reflect the "+
		"main topic of the conversation.\n\nCONVERSATION:\nUser: %s\nAI: %s\n\nTITLE:",
		lang.Name(), firstUser, firstReply)
}

// =============================================================================
// CLEANUP
// =============================================================================

const quoteRunes = "\"'`“”‘’«»„‚‹›"

// Clean normalizes a raw model title: first line only, no "TITLE:" label,
// no heading marker, no wrapping quotes or emphasis, no trailing
// punctuation, collapsed whitespace, at most MaxRunes runes.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	s = stripHeading(stripLabel(s))

	for {
		before := s
		s = strings.TrimSpace(s)
		s = strings.Trim(s, quoteRunes)
		s = stripEmphasis(s)
		s = strings.TrimRightFunc(s, isTrailingPunct)
		if s == before {
			break
		}
	}

	return truncateWords(util.SingleLine(s), MaxRunes)
}

// stripHeading removes a leading markdown heading marker ("# ", "## ").
func stripHeading(s string) string {
	rest := strings.TrimLeft(s, "#")
	if rest != s && strings.HasPrefix(rest, " ") {
		return strings.TrimSpace(rest)
	}
	return s
}

// stripEmphasis removes one pair of matching emphasis markers around s.
func stripEmphasis(s string) string {
	for _, m := range []string{"**", "__", "*", "_"} {
		if len(s) > 2*len(m) && strings.HasPrefix(s, m) && strings.HasSuffix(s, m) {
			return s[len(m) : len(s)-len(m)]
		}
	}
	return s
}

// truncateWords cuts s to at most limit runes, backing up to the last word
// boundary when the cut lands inside a word.
func truncateWords(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := runes[:limit]
	if !unicode.IsSpace(runes[limit]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), isTrailingPunct)
}

func stripLabel(s string) string {
	if len(s) >= 6 && strings.EqualFold(s[:6], "title:") {
		return strings.TrimSpace(s[6:])
	}
	return s
}

func isTrailingPunct(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ';', ':', '…', '。', '¡', '¿':
		return true
	}
	return unicode.IsSpace(r)
}
