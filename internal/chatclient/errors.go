// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatclient

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeValidation
	ErrTypeBusy
	ErrTypeConnection
	ErrTypeStatus
	ErrTypeStream
	ErrTypeCancelled
)

// String returns the type name used in logs.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeValidation:
		return "validation"
	case ErrTypeBusy:
		return "busy"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeStatus:
		return "status"
	case ErrTypeStream:
		return "stream"
	case ErrTypeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the chat client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg += " (HTTP " + strconv.Itoa(e.StatusCode) + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so callers can compare
// against the sentinels below with errors.Is.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	// ErrEmptyMessage is returned by Send for empty or whitespace-only input.
	// No request is made and the transcript is unchanged.
	ErrEmptyMessage = &ClientError{Type: ErrTypeValidation, Message: "message is empty"}

	// ErrBusy is returned by Send while another Send is in flight. The call
	// is a no-op.
	ErrBusy = &ClientError{Type: ErrTypeBusy, Message: "a message is already being sent"}
)

// IsCancelled reports whether err records a cancelled send.
func IsCancelled(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrTypeCancelled
}

// IsTransport reports whether err is a connection, status or stream failure.
func IsTransport(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	switch clientErr.Type {
	case ErrTypeConnection, ErrTypeStatus, ErrTypeStream:
		return true
	}
	return false
}
