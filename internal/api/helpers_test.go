// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/DevEmmy/eventfi-backend-v2/internal/audit"
	"github.com/DevEmmy/eventfi-backend-v2/internal/auth"
	"github.com/DevEmmy/eventfi-backend-v2/internal/authz"
	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
	"github.com/DevEmmy/eventfi-backend-v2/internal/database"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
	ws "github.com/DevEmmy/eventfi-backend-v2/internal/websocket"
)

const (
	testEvent  = "evt-1"
	testSecret = "api-test-secret-that-is-long-enough"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// fixture is a fully wired API over in-memory stores. "org" owns
// testEvent, "mod" is a co-host, "alice" and "bob" hold tickets and
// "carol" does not.
type fixture struct {
	cfg     *config.Config
	svc     *chat.Service
	audit   *audit.MemoryStore
	hub     *ws.Hub
	jwt     *auth.JWTManager
	handler http.Handler
}

type fixtureOption func(*config.Config, *HandlerDeps)

func withoutAudit() fixtureOption {
	return func(_ *config.Config, d *HandlerDeps) { d.Audit = nil }
}

func withStore(p Pinger) fixtureOption {
	return func(_ *config.Config, d *HandlerDeps) { d.Store = p }
}

func withRateLimit(n int) fixtureOption {
	return func(c *config.Config, _ *HandlerDeps) {
		c.Security.RateLimitDisabled = false
		c.Security.RateLimitReqs = n
		c.Security.RateLimitWindow = time.Minute
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			SessionTimeout:    time.Hour,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"https://app.eventfi.test"},
		},
		Chat: config.ChatConfig{SendBuffer: 64},
		API:  config.APIConfig{DefaultPageSize: 50, MaxPageSize: 100},
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()

	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	dir := database.NewMemoryDirectory()
	store := database.NewMemoryStore()
	svc, err := chat.NewService(chat.Config{Store: store, Directory: dir, Authorizer: enforcer})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	for _, u := range []string{"org", "mod", "alice", "bob", "carol"} {
		_ = dir.PutUser(ctx, models.Profile{UserID: u, DisplayName: "User " + u})
	}
	_ = dir.PutEvent(ctx, models.EventRef{ID: testEvent, OrganizerID: "org", Title: "Launch Party", EndDate: time.Now().Add(48 * time.Hour)})
	_ = dir.PutTeamMember(ctx, models.TeamMember{EventID: testEvent, UserID: "mod", Role: "co-host", Status: "active"})
	_ = dir.PutTicket(ctx, "t-alice", testEvent, "alice", "CONFIRMED")
	_ = dir.PutTicket(ctx, "t-bob", testEvent, "bob", "CONFIRMED")

	cfg := testConfig()
	hub := ws.NewHub()
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(runCtx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	auditStore := audit.NewMemoryStore(100)
	deps := HandlerDeps{
		Chat:    svc,
		Audit:   auditStore,
		Store:   store,
		Gateway: ws.NewGateway(hub, svc, cfg.Chat),
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	handler, err := NewHandler(cfg, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	router := NewRouter(handler, auth.NewMiddleware(jwtManager), NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	return &fixture{
		cfg:     cfg,
		svc:     svc,
		audit:   auditStore,
		hub:     hub,
		jwt:     jwtManager,
		handler: router.SetupChi(),
	}
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(userID)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

// envelope is a decoded API response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type result struct {
	status int
	header http.Header
	body   envelope
}

// do sends a request as user ("" for anonymous). body is JSON-encoded
// unless it is already a string.
func (f *fixture) do(t *testing.T, method, path, user string, body interface{}) result {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, user))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	res := result{status: rec.Code, header: rec.Header()}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &res.body); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return res
}

func chatPath(suffix string) string {
	return "/api/v1/events/" + testEvent + "/chat" + suffix
}

// join joins each user to the test chat.
func (f *fixture) join(t *testing.T, users ...string) {
	t.Helper()
	for _, u := range users {
		res := f.do(t, http.MethodGet, chatPath(""), u, nil)
		if res.status != http.StatusOK {
			t.Fatalf("join %s: status %d", u, res.status)
		}
	}
}

// expectError asserts an error envelope with the given status and code.
func expectError(t *testing.T, res result, status int, code string) {
	t.Helper()
	if res.status != status {
		t.Errorf("status = %d, want %d", res.status, status)
	}
	if res.body.Success {
		t.Error("success = true, want false")
	}
	if res.body.Error == nil {
		t.Fatalf("missing error body")
	}
	if res.body.Error.Code != code {
		t.Errorf("code = %q (%s), want %q", res.body.Error.Code, res.body.Error.Message, code)
	}
}

func decodeData(t *testing.T, res result, v interface{}) {
	t.Helper()
	if !res.body.Success {
		t.Fatalf("expected success, got status %d error %+v", res.status, res.body.Error)
	}
	if err := json.Unmarshal(res.body.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", res.body.Data, err)
	}
}
