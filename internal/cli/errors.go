// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, exit codes and error display for every command.
//
// Commands always return errors and never print them; Execute displays the
// error once and maps it to an exit code.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/souq-assist/internal/chatclient"
	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/storage"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitNotFound     = 7
)

// errReplyFailed marks an ask whose reply was the failure notice. The notice
// has already been printed, so Execute only sets the exit code.
var errReplyFailed = errors.New("reply failed")

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports a bad argument or flag value.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Example != "" {
		msg += " (example: " + e.Example + ")"
	}
	return msg
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// CommandError wraps a failure with the command that hit it.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err, or returns nil when err is nil.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON error response in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse("", err)
		resp.ErrorType = errorType(err)
		_ = resp.Print(w)
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))
}

func errorType(err error) string {
	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &ttyErr):
		return "tty_required"
	case errors.Is(err, storage.ErrConversationNotFound):
		return "not_found"
	case chatclient.IsTransport(err):
		return "network_error"
	default:
		return "error"
	}
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var ttyErr *TTYRequiredError
	var configErrs config.ValidateErrors
	switch {
	case errors.As(err, &validationErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, storage.ErrConversationNotFound):
		return ExitNotFound
	case errors.Is(err, errReplyFailed), chatclient.IsTransport(err):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
