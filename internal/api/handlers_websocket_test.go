// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
)

const testOrigin = "https://app.eventfi.test"

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, server *httptest.Server, token, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	if token != "" {
		url += "?token=" + token
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f wsFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestWebSocket_Handshake(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(f.handler)
	t.Cleanup(server.Close)

	tests := []struct {
		name   string
		token  string
		origin string
		status int
	}{
		{name: "missing token", token: "", origin: testOrigin, status: http.StatusUnauthorized},
		{name: "invalid token", token: "not-a-jwt", origin: testOrigin, status: http.StatusUnauthorized},
		{name: "missing origin", token: f.token(t, "alice"), origin: "", status: http.StatusForbidden},
		{name: "foreign origin", token: f.token(t, "alice"), origin: "https://evil.test", status: http.StatusForbidden},
		{name: "accepted", token: f.token(t, "alice"), origin: testOrigin, status: http.StatusSwitchingProtocols},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dialWS(t, server, tt.token, tt.origin)
			if tt.status == http.StatusSwitchingProtocols {
				if err != nil {
					t.Fatalf("dial error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("dial succeeded, want rejection")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("handshake response = %v, want %d", resp, tt.status)
			}
		})
	}
}

func TestWebSocket_RESTSendReachesRoom(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(f.handler)
	t.Cleanup(server.Close)

	conn, _, err := dialWS(t, server, f.token(t, "bob"), testOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.WriteJSON(map[string]interface{}{"event": "join", "data": map[string]string{"eventId": testEvent}}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if got := readFrame(t, conn); got.Event != "joined" {
		t.Fatalf("first frame = %s %s, want joined", got.Event, got.Data)
	}

	f.join(t, "alice")
	res := f.do(t, http.MethodPost, chatPath("/messages"), "alice", map[string]string{"content": "from rest"})
	if res.status != http.StatusCreated {
		t.Fatalf("send status = %d", res.status)
	}

	got := readFrame(t, conn)
	if got.Event != "message" {
		t.Fatalf("frame = %s, want message", got.Event)
	}
	var msg chat.MessageView
	if err := json.Unmarshal(got.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Content != "from rest" || msg.Sender.ID != "alice" {
		t.Errorf("message = %+v", msg)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		origin  string
		allowed bool
	}{
		{name: "nil config allows", cfg: nil, origin: "https://any.test", allowed: true},
		{name: "empty origin rejected", cfg: nil, origin: "", allowed: false},
		{name: "listed origin", cfg: &config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"https://a.test", testOrigin}}}, origin: testOrigin, allowed: true},
		{name: "wildcard", cfg: &config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"*"}}}, origin: "https://b.test", allowed: true},
		{name: "unlisted origin", cfg: &config.Config{Security: config.SecurityConfig{CORSOrigins: []string{"https://a.test"}}}, origin: "https://b.test", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{config: tt.cfg}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.allowed {
				t.Errorf("checkWebSocketOrigin() = %v, want %v", got, tt.allowed)
			}
		})
	}
}
