// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"strings"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// WireMessage is a message as it crosses the HTTP boundary.
type WireMessage struct {
	ID       string `json:"id,omitempty"`
	Role     string `json:"role"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// SendMessageRequest is the body of POST /api/sendMessage.
type SendMessageRequest struct {
	Messages []WireMessage `json:"messages"`
	Language string        `json:"language"`
}

// GenerateTitleRequest is the body of POST /api/generateTitle.
type GenerateTitleRequest struct {
	FirstUserMessage string `json:"firstUserMessage"`
	FirstAIResponse  string `json:"firstAiResponse"`
	Language         string `json:"language"`
}

// GenerateTitleResponse is the success body of POST /api/generateTitle.
type GenerateTitleResponse struct {
	Title string `json:"title"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewSendMessageRequest builds the wire request for a history.
func NewSendMessageRequest(history []model.Message, lang model.Language) SendMessageRequest {
	req := SendMessageRequest{
		Messages: make([]WireMessage, 0, len(history)),
		Language: lang.String(),
	}
	for _, m := range history {
		req.Messages = append(req.Messages, WireMessage{
			ID:       m.ID,
			Role:     m.Role.String(),
			Text:     m.Text,
			Language: m.Language.String(),
		})
	}
	return req
}

// Turns validates the request and converts it to the core vocabulary.
func (r SendMessageRequest) Turns() ([]model.Turn, model.Language, error) {
	if len(r.Messages) == 0 || strings.TrimSpace(r.Language) == "" {
		return nil, "", validationError(MsgMissingMessages, nil)
	}
	lang, err := model.ParseLanguage(r.Language)
	if err != nil {
		return nil, "", validationError(MsgUnsupportedLang, err)
	}

	turns := make([]model.Turn, 0, len(r.Messages))
	for _, m := range r.Messages {
		role, err := model.ParseRole(m.Role)
		if err != nil {
			return nil, "", validationError(MsgInvalidRole, err)
		}
		turns = append(turns, model.Turn{Role: role, Text: m.Text})
	}
	return turns, lang, nil
}

// Validate checks that all title fields are present and the language known.
func (r GenerateTitleRequest) Validate() (model.Language, error) {
	if strings.TrimSpace(r.FirstUserMessage) == "" ||
		strings.TrimSpace(r.FirstAIResponse) == "" ||
		strings.TrimSpace(r.Language) == "" {
		return "", validationError(MsgMissingTitleFields, nil)
	}
	lang, err := model.ParseLanguage(r.Language)
	if err != nil {
		return "", validationError(MsgUnsupportedLang, err)
	}
	return lang, nil
}
