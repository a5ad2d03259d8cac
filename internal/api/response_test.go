// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code chat.Code
		want int
	}{
		{chat.CodeNotFound, http.StatusNotFound},
		{chat.CodeChatNotFound, http.StatusNotFound},
		{chat.CodeNotAuthorized, http.StatusForbidden},
		{chat.CodeNoTicket, http.StatusForbidden},
		{chat.CodeChatDisabled, http.StatusForbidden},
		{chat.CodeNotJoined, http.StatusForbidden},
		{chat.CodeSlowMode, http.StatusTooManyRequests},
		{chat.CodeUserMuted, http.StatusTooManyRequests},
		{chat.CodeRateLimited, http.StatusTooManyRequests},
		{chat.CodeValidation, http.StatusBadRequest},
		{chat.CodeMessageTooLong, http.StatusBadRequest},
		{chat.CodeInternal, http.StatusInternalServerError},
		{chat.Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := statusForCode(tt.code); got != tt.want {
				t.Errorf("statusForCode(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func writeChatError(t *testing.T, err error) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-9"))
	rec := httptest.NewRecorder()
	NewResponseWriter(rec, req).ChatError(err)

	var body APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec, body
}

func TestChatError(t *testing.T) {
	t.Run("slow mode carries retry after", func(t *testing.T) {
		err := &chat.Error{Code: chat.CodeSlowMode, Message: "wait 12 seconds", RetryAfter: 12}
		rec, body := writeChatError(t, fmt.Errorf("send: %w", err))

		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Retry-After"); got != "12" {
			t.Errorf("Retry-After = %q", got)
		}
		if body.Error.Code != "SLOW_MODE" || body.Error.Message != "wait 12 seconds" {
			t.Errorf("error = %+v", body.Error)
		}
		if body.Error.RequestID != "req-9" || body.Meta.RequestID != "req-9" {
			t.Errorf("request ids = %q / %q", body.Error.RequestID, body.Meta.RequestID)
		}
	})

	t.Run("indefinite mute has no retry after", func(t *testing.T) {
		rec, body := writeChatError(t, chat.NewError(chat.CodeUserMuted, "muted"))
		if rec.Header().Get("Retry-After") != "" || body.Error.Details != nil {
			t.Errorf("unexpected retry info: header %q details %v", rec.Header().Get("Retry-After"), body.Error.Details)
		}
	})

	t.Run("infrastructure error is hidden", func(t *testing.T) {
		rec, body := writeChatError(t, errors.New("pq: connection reset by peer"))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d", rec.Code)
		}
		if body.Error.Code != ErrCodeInternalError || strings.Contains(body.Error.Message, "pq") {
			t.Errorf("error = %+v", body.Error)
		}
	})
}

func TestResponseWriter_Envelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	NewResponseWriter(rec, req).SuccessWithPagination([]string{"a"}, &PaginationMeta{Count: 1, Limit: 10, HasMore: true, NextCursor: "m-1"})

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["success"] != true {
		t.Errorf("success = %v", raw["success"])
	}
	if _, ok := raw["error"]; ok {
		t.Error("success envelope must omit error")
	}
	meta := raw["meta"].(map[string]interface{})
	pg := meta["pagination"].(map[string]interface{})
	if pg["next_cursor"] != "m-1" || pg["has_more"] != true {
		t.Errorf("pagination = %v", pg)
	}

	rec = httptest.NewRecorder()
	NewResponseWriter(rec, req).Created(map[string]string{"id": "m-2"})
	if rec.Code != http.StatusCreated {
		t.Errorf("Created status = %d", rec.Code)
	}
}
