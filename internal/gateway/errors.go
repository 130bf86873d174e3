// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// Kind separates request problems from model problems.
type Kind int

const (
	// KindValidation means the request was rejected before any model call.
	KindValidation Kind = iota + 1

	// KindUpstream means the model or its transport failed.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is returned by the gateway for every failure it classifies.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Started is true when at least one fragment was delivered before an
	// upstream failure.
	Started bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation messages. They double as the HTTP error bodies.
const (
	MsgMissingMessages    = "Missing messages or language"
	MsgUnsupportedLang    = "Unsupported language"
	MsgInvalidRole        = "Invalid message role"
	MsgMissingTitleFields = "Missing required fields"
)

func validationError(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Cause: cause}
}

// IsValidation reports whether err is a gateway validation error.
func IsValidation(err error) bool {
	return hasKind(err, KindValidation)
}

// IsUpstream reports whether err is a gateway upstream error.
func IsUpstream(err error) bool {
	return hasKind(err, KindUpstream)
}

func hasKind(err error, k Kind) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind == k
	}
	return false
}
