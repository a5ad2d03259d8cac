// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newFixture(t)
		res := f.do(t, http.MethodGet, "/api/v1/health", "", nil)
		var status HealthStatus
		decodeData(t, res, &status)
		if res.status != http.StatusOK || status.Status != "healthy" || status.Database != "connected" {
			t.Errorf("status %d body %+v", res.status, status)
		}
		if status.WebSocketClients != 0 || status.Rooms != 0 {
			t.Errorf("idle hub reported %d clients %d rooms", status.WebSocketClients, status.Rooms)
		}
	})

	t.Run("store unreachable", func(t *testing.T) {
		f := newFixture(t, withStore(failingPinger{}))
		res := f.do(t, http.MethodGet, "/api/v1/health", "", nil)
		expectError(t, res, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)
		details, _ := res.body.Error.Details.(map[string]interface{})
		if details["status"] != "unhealthy" || details["database"] != "unreachable" {
			t.Errorf("details = %v", res.body.Error.Details)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	// Generate at least one instrumented request.
	f.do(t, http.MethodGet, "/api/v1/health", "", nil)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `endpoint="/api/v1/health"`) {
		t.Error("metrics output missing health endpoint label")
	}
}

func TestRouter_FallbackHandlers(t *testing.T) {
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	expectError(t, res, http.StatusNotFound, ErrCodeNotFound)

	res = f.do(t, http.MethodDelete, chatPath("/settings"), "org", nil)
	expectError(t, res, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed)
}
