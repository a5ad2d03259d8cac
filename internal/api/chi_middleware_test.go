// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
)

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	cfg := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{
		CORSOrigins:     []string{"https://app.test"},
		RateLimitReqs:   30,
		RateLimitWindow: 10 * time.Second,
	})
	if cfg.RateLimitRequests != 30 || cfg.RateLimitWindow != 10*time.Second {
		t.Errorf("rate limit = %d/%v", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://app.test" {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}

	def := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{})
	if def.RateLimitRequests != 100 || def.RateLimitWindow != time.Minute {
		t.Errorf("zero values should keep defaults, got %d/%v", def.RateLimitRequests, def.RateLimitWindow)
	}
}

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, chatPath("/messages"), nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, chatPath("/messages"), nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign Allow-Origin = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, withRateLimit(10))
	f.join(t, "alice")

	// Writes get a fifth of the budget: 2 per window.
	for i := 0; i < 2; i++ {
		res := f.do(t, http.MethodPost, chatPath("/messages"), "alice", map[string]string{"content": "hi"})
		if res.status != http.StatusCreated {
			t.Fatalf("send %d: status %d", i, res.status)
		}
	}
	res := f.do(t, http.MethodPost, chatPath("/messages"), "alice", map[string]string{"content": "hi"})
	expectError(t, res, http.StatusTooManyRequests, ErrCodeTooManyRequests)
	if got := res.header.Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q", got)
	}

	// Another user has their own write budget.
	f.join(t, "bob")
	res = f.do(t, http.MethodPost, chatPath("/messages"), "bob", map[string]string{"content": "hey"})
	if res.status != http.StatusCreated {
		t.Errorf("bob send: status %d", res.status)
	}

	// The per-IP budget covers everything else.
	for i := 0; i < 20 && res.status != http.StatusTooManyRequests; i++ {
		res = f.do(t, http.MethodGet, chatPath("/messages"), "alice", nil)
	}
	expectError(t, res, http.StatusTooManyRequests, ErrCodeTooManyRequests)
}
