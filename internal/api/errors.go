// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

// statusForCode maps chat error codes to HTTP status.
func statusForCode(code chat.Code) int {
	switch code {
	case chat.CodeNotFound, chat.CodeChatNotFound:
		return http.StatusNotFound
	case chat.CodeNotAuthorized, chat.CodeNoTicket, chat.CodeChatDisabled, chat.CodeNotJoined:
		return http.StatusForbidden
	case chat.CodeSlowMode, chat.CodeUserMuted, chat.CodeRateLimited:
		return http.StatusTooManyRequests
	case chat.CodeValidation, chat.CodeMessageTooLong:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ChatError writes err. Domain errors keep their code; anything else is
// logged and reported as an internal error without its message.
func (rw *ResponseWriter) ChatError(err error) {
	var e *chat.Error
	if !errors.As(err, &e) {
		logging.Ctx(rw.r.Context()).Error().Err(err).
			Str("method", rw.r.Method).
			Str("path", rw.r.URL.Path).
			Msg("chat operation failed")
		rw.InternalError("internal error")
		return
	}

	var details interface{}
	if e.RetryAfter > 0 {
		rw.w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
		details = map[string]int{"retryAfter": e.RetryAfter}
	}
	rw.ErrorWithDetails(statusForCode(e.Code), string(e.Code), e.Message, details)
}
