// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error variables for common API failures.
var (
	// ErrUnauthenticated indicates the server rejected the session (HTTP 401).
	// Callers should send the user to LoginURL.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrUnexpectedResponse indicates a well-formed reply whose shape carries
	// no answer.
	ErrUnexpectedResponse = errors.New("unexpected response format")

	// ErrResponseTooLarge indicates a body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response exceeded maximum size")
)

// StatusError is returned for non-2xx replies other than 401.
type StatusError struct {
	StatusCode int
	Message    string
	RequestID  string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error (HTTP %d)", e.StatusCode)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsUnauthenticated reports whether err is, or wraps, ErrUnauthenticated.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
