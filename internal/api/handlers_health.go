// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

const healthPingTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status           string  `json:"status"`
	Database         string  `json:"database"`
	WebSocketClients int     `json:"websocketClients"`
	Rooms            int     `json:"rooms"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// Health reports store reachability and realtime load. An unreachable
// store answers 503 so load balancers stop routing here.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	hub := h.gateway.Hub()
	status := HealthStatus{
		Status:           "healthy",
		Database:         "connected",
		WebSocketClients: hub.GetClientCount(),
		Rooms:            hub.RoomCount(),
		UptimeSeconds:    time.Since(h.startTime).Seconds(),
	}

	if err := h.store.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("health check: store unreachable")
		status.Status = "unhealthy"
		status.Database = "unreachable"
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "store unreachable", status)
		return
	}
	rw.Success(status)
}
