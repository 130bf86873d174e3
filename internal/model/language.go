// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is the UI and response language. The set is closed: values that
// do not parse into one of Languages are rejected at the gateway.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
	French  Language = "fr"
	German  Language = "de"
)

// DefaultLanguage is used when nothing has been persisted yet.
const DefaultLanguage = English

// Languages lists the supported languages in selector order.
var Languages = []Language{English, Spanish, French, German}

var languageNames = map[Language]struct{ english, native string }{
	English: {"English", "English"},
	Spanish: {"Spanish", "Español"},
	French:  {"French", "Français"},
	German:  {"German", "Deutsch"},
}

// String returns the BCP 47 base tag.
func (l Language) String() string {
	return string(l)
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	_, ok := languageNames[l]
	return ok
}

// Name returns the English name of the language, used in prompts.
func (l Language) Name() string {
	if n, ok := languageNames[l]; ok {
		return n.english
	}
	return string(l)
}

// NativeName returns the name of the language in itself.
func (l Language) NativeName() string {
	if n, ok := languageNames[l]; ok {
		return n.native
	}
	return string(l)
}

// Tag returns the x/text language tag.
func (l Language) Tag() language.Tag {
	return language.Make(string(l))
}

// ParseLanguage maps a transport value onto a supported Language.
// Accepts BCP 47 tags including regional variants ("es-MX") as well as the
// English or native language names.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("language is empty")
	}

	for _, l := range Languages {
		names := languageNames[l]
		if strings.EqualFold(s, names.english) || strings.EqualFold(s, names.native) {
			return l, nil
		}
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("unknown language %q: %w", s, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("unknown language %q", s)
	}

	l := Language(base.String())
	if !l.Valid() {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return l, nil
}

// ParseLanguageOrDefault returns DefaultLanguage when s cannot be parsed.
func ParseLanguageOrDefault(s string) Language {
	l, err := ParseLanguage(s)
	if err != nil {
		return DefaultLanguage
	}
	return l
}
