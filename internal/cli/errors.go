// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling for qachat CLI commands.
//
// Commands always return errors; Execute prints them once and maps them
// to an exit code.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/jeranaias/qachat/internal/api"
	"github.com/jeranaias/qachat/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the server rejected the session
	ExitAuthError = 4
	// ExitNetworkError indicates the server could not be reached or failed
	ExitNetworkError = 5
	// ExitInterrupted indicates the user cancelled the operation
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "ask", "config")
	Action  string // Action being performed (e.g., "set", "fetch")
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause see through a CommandError.
func (e *CommandError) Cause() error {
	return e.Err
}

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// usageError marks bad arguments.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ue *usageError
	var ve config.ValidateErrors
	var se *api.StatusError
	var tty *TTYRequiredError
	switch {
	case errors.As(err, &ue), errors.As(err, &tty):
		return ExitUsageError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case api.IsUnauthenticated(err):
		return ExitAuthError
	case errors.As(err, &ve):
		return ExitConfigError
	case errors.As(err, &se), errors.Is(err, api.ErrUnexpectedResponse):
		return ExitNetworkError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// printError writes err for the user. Unauthenticated errors carry the
// login URL when one is known.
func printError(w io.Writer, err error, loginURL string) {
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
	if api.IsUnauthenticated(err) && loginURL != "" {
		fmt.Fprintf(w, "Log in at %s\n", LinkStyle.Render(loginURL))
	}
}
