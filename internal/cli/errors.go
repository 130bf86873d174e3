// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/lumen/internal/config"
	"github.com/jeranaias/lumen/internal/orchestrator"
	"github.com/jeranaias/lumen/internal/provider"
	"github.com/jeranaias/lumen/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	// ExitReplyFailed means the send completed but the model reply failed.
	ExitReplyFailed = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string
	Action  string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a conversation id or prefix matches nothing.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// AmbiguousError is returned when an id prefix matches several conversations.
type AmbiguousError struct {
	Prefix  string
	Matches int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("id prefix %q matches %d conversations", e.Prefix, e.Matches)
}

// ErrReplyFailed is returned by send when the reply was replaced with the
// error text.
var ErrReplyFailed = errors.New("reply failed")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err to w, as JSON in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		output := map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": errorType(err),
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(output)
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[ERROR]"), err.Error())
}

func errorType(err error) string {
	var (
		cmdErr    *CommandError
		notFound  *NotFoundError
		ambiguous *AmbiguousError
		verrs     config.ValidateErrors
		statusErr *transport.StatusError
	)
	switch {
	case errors.As(err, &notFound):
		return "not_found_error"
	case errors.As(err, &ambiguous):
		return "usage_error"
	case errors.As(err, &verrs):
		return "config_error"
	case errors.As(err, &statusErr):
		return "server_error"
	case errors.As(err, &cmdErr):
		return "command_error"
	default:
		return "generic_error"
	}
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		notFound  *NotFoundError
		ambiguous *AmbiguousError
		verrs     config.ValidateErrors
		statusErr *transport.StatusError
	)
	switch {
	case errors.Is(err, ErrReplyFailed):
		return ExitReplyFailed
	case errors.As(err, &notFound):
		return ExitNotFoundError
	case errors.As(err, &ambiguous),
		errors.Is(err, orchestrator.ErrEmptyMessage),
		errors.Is(err, orchestrator.ErrSendInFlight),
		errors.Is(err, orchestrator.ErrNoActiveConversation):
		return ExitUsageError
	case errors.As(err, &verrs), errors.Is(err, provider.ErrMissingAPIKey):
		return ExitConfigError
	case errors.As(err, &statusErr):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
