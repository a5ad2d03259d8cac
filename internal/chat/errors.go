// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chat

import (
	"errors"
	"fmt"
)

// Code is a stable error code surfaced to REST and realtime clients.
type Code string

// Error codes.
const (
	CodeChatNotFound   Code = "CHAT_NOT_FOUND"
	CodeNoTicket       Code = "NO_TICKET"
	CodeChatDisabled   Code = "CHAT_DISABLED"
	CodeUserMuted      Code = "USER_MUTED"
	CodeSlowMode       Code = "SLOW_MODE"
	CodeMessageTooLong Code = "MESSAGE_TOO_LONG"
	CodeNotAuthorized  Code = "NOT_AUTHORIZED"
	CodeNotJoined      Code = "NOT_JOINED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Error is a domain rule violation.
type Error struct {
	Code    Code
	Message string

	// RetryAfter is the number of seconds after which the operation may
	// succeed. Set for SLOW_MODE and timed USER_MUTED.
	RetryAfter int
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewError builds a domain error for callers outside the package.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the code of a domain error, or CodeInternal for any other error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
