// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package locale holds the per-language string tables: UI text shown by the
// front end, the canonical error reply, and the system instruction sent to
// the model.
package locale

import "github.com/jeranaias/lumen/internal/model"

// Strings is the UI string table for one language.
type Strings struct {
	Title                  string
	Slogan                 string
	NewChat                string
	DeleteChat             string
	ChatHistoryHeader      string
	LanguageSelectorHeader string
	ChatPlaceholder        string
	WelcomeHeader          string
	WelcomeMessage         string
	// ErrorMessage replaces the assistant placeholder when a send fails.
	ErrorMessage string
}

var uiText = map[model.Language]Strings{
	model.English: {
		Title:                  "Lumen",
		Slogan:                 "Think out loud, one conversation at a time.",
		NewChat:                "New Chat",
		DeleteChat:             "Delete Chat",
		ChatHistoryHeader:      "Chat History",
		LanguageSelectorHeader: "Language",
		ChatPlaceholder:        "Ask anything...",
		WelcomeHeader:          "Welcome",
		WelcomeMessage:         "Start a new chat to begin.",
		ErrorMessage:           "Sorry, something went wrong. Please try again.",
	},
	model.Spanish: {
		Title:                  "Lumen",
		Slogan:                 "Piensa en voz alta, una conversación a la vez.",
		NewChat:                "Nuevo chat",
		DeleteChat:             "Eliminar chat",
		ChatHistoryHeader:      "Historial",
		LanguageSelectorHeader: "Idioma",
		ChatPlaceholder:        "Pregunta lo que quieras...",
		WelcomeHeader:          "Bienvenido",
		WelcomeMessage:         "Crea un nuevo chat para empezar.",
		ErrorMessage:           "Lo siento, algo salió mal. Inténtalo de nuevo.",
	},
	model.French: {
		Title:                  "Lumen",
		Slogan:                 "Pensez à voix haute, une conversation à la fois.",
		NewChat:                "Nouvelle discussion",
		DeleteChat:             "Supprimer la discussion",
		ChatHistoryHeader:      "Historique",
		LanguageSelectorHeader: "Langue",
		ChatPlaceholder:        "Posez votre question...",
		WelcomeHeader:          "Bienvenue",
		WelcomeMessage:         "Créez une nouvelle discussion pour commencer.",
		ErrorMessage:           "Désolé, une erreur s'est produite. Veuillez réessayer.",
	},
	model.German: {
		Title:                  "Lumen",
		Slogan:                 "Laut denken, ein Gespräch nach dem anderen.",
		NewChat:                "Neuer Chat",
		DeleteChat:             "Chat löschen",
		ChatHistoryHeader:      "Verlauf",
		LanguageSelectorHeader: "Sprache",
		ChatPlaceholder:        "Frag mich etwas...",
		WelcomeHeader:          "Willkommen",
		WelcomeMessage:         "Starte einen neuen Chat, um zu beginnen.",
		ErrorMessage:           "Entschuldigung, etwas ist schiefgelaufen. Bitte versuche es erneut.",
	},
}

var systemInstructions = map[model.Language]string{
	model.English: "You are a helpful, friendly assistant. Always answer in English. " +
		"Use Markdown for structure and LaTeX for mathematics when it helps.",
	model.Spanish: "Eres un asistente útil y amable. Responde siempre en español. " +
		"Usa Markdown para dar estructura y LaTeX para las matemáticas cuando ayude.",
	model.French: "Tu es un assistant serviable et aimable. Réponds toujours en français. " +
		"Utilise Markdown pour la structure et LaTeX pour les mathématiques si utile.",
	model.German: "Du bist ein hilfsbereiter, freundlicher Assistent. Antworte immer auf Deutsch. " +
		"Nutze Markdown für Struktur und LaTeX für Mathematik, wenn es hilft.",
}

// For returns the string table for lang, falling back to English.
func For(lang model.Language) Strings {
	if s, ok := uiText[lang]; ok {
		return s
	}
	return uiText[model.DefaultLanguage]
}

// ErrorMessage returns the canonical error reply for lang.
func ErrorMessage(lang model.Language) string {
	return For(lang).ErrorMessage
}

// NewChatName returns the default name for a freshly created conversation.
func NewChatName(lang model.Language) string {
	return For(lang).NewChat
}

// SystemInstruction returns the fixed system instruction for lang.
func SystemInstruction(lang model.Language) string {
	if s, ok := systemInstructions[lang]; ok {
		return s
	}
	return systemInstructions[model.DefaultLanguage]
}
