// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generates when absent", incoming: "", reuse: false},
		{name: "reuses upstream id", incoming: "edge-7f3a", reuse: true},
		{name: "replaces oversized id", incoming: strings.Repeat("x", maxRequestIDLength+1), reuse: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID, correlation string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = logging.RequestIDFromContext(r.Context())
				correlation = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			header := rec.Header().Get(RequestIDHeader)
			if header == "" {
				t.Fatal("missing response request id")
			}
			if header != ctxID {
				t.Errorf("header %q != context %q", header, ctxID)
			}
			if tt.reuse && header != tt.incoming {
				t.Errorf("request id = %q, want upstream %q", header, tt.incoming)
			}
			if !tt.reuse && header == tt.incoming {
				t.Errorf("request id %q should have been regenerated", header)
			}
			if correlation == "" {
				t.Error("missing correlation id")
			}
		})
	}
}
