// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DevEmmy/eventfi-backend-v2/internal/audit"
	"github.com/DevEmmy/eventfi-backend-v2/internal/auth"
	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
	ws "github.com/DevEmmy/eventfi-backend-v2/internal/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

// ChatService is the chat surface served over REST.
type ChatService interface {
	GetOrJoinChat(ctx context.Context, eventID, userID string) (*chat.JoinResult, error)
	GetMessages(ctx context.Context, eventID, userID, before string, limit int) (*chat.MessagePage, error)
	GetPinnedMessages(ctx context.Context, eventID, userID string) ([]chat.MessageView, error)
	SendMessage(ctx context.Context, eventID, userID string, in chat.SendInput) (*chat.MessageView, error)
	ModerateMessage(ctx context.Context, eventID, messageID, userID string, action chat.ModerationAction) (*chat.ModerationResult, error)
	ListMembers(ctx context.Context, eventID, userID string, onlineOnly bool, limit int) ([]chat.MemberView, error)
	MuteUser(ctx context.Context, eventID, targetUserID, actorUserID string, durationMinutes int) (*chat.MuteResult, error)
	UpdateSettings(ctx context.Context, eventID, actorID string, patch models.ChatSettingsPatch) (*models.Chat, error)
	Authorize(ctx context.Context, eventID, userID, action string) (models.Role, error)
	GetOrCreateChat(ctx context.Context, eventID string) (*models.Chat, error)
}

// AuditReader reads the moderation trail.
type AuditReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error)
}

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerDeps are the collaborators of a Handler. Audit may be nil, in
// which case the audit route answers 503.
type HandlerDeps struct {
	Chat    ChatService
	Audit   AuditReader
	Store   Pinger
	Gateway *ws.Gateway
}

// Handler serves the chat REST routes and the websocket upgrade.
type Handler struct {
	config    *config.Config
	chat      ChatService
	audit     AuditReader
	store     Pinger
	gateway   *ws.Gateway
	startTime time.Time
}

// NewHandler creates a handler. cfg may be nil in tests.
func NewHandler(cfg *config.Config, deps HandlerDeps) (*Handler, error) {
	if deps.Chat == nil || deps.Store == nil || deps.Gateway == nil {
		return nil, errors.New("api: chat service, store and gateway are required")
	}
	return &Handler{
		config:    cfg,
		chat:      deps.Chat,
		audit:     deps.Audit,
		store:     deps.Store,
		gateway:   deps.Gateway,
		startTime: time.Now(),
	}, nil
}

func (h *Handler) pageBounds() (def, max int) {
	def, max = chat.DefaultPageSize, chat.MaxPageSize
	if h.config != nil {
		if h.config.API.DefaultPageSize > 0 {
			def = h.config.API.DefaultPageSize
		}
		if h.config.API.MaxPageSize > 0 {
			max = h.config.API.MaxPageSize
		}
	}
	return def, max
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	timeout := defaultHandshakeTimeout
	if h.config != nil && h.config.Chat.HandshakeTimeout > 0 {
		timeout = h.config.Chat.HandshakeTimeout
	}
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: timeout,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin; an empty one would bypass CORS.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	// If config is nil, allow by default (fail open for tests/development)
	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades an authenticated request and serves the connection
// until it closes. Authentication has already happened in middleware.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.gateway.Serve(r.Context(), conn, userID)
}
