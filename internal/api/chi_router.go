// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DevEmmy/eventfi-backend-v2/internal/auth"
	"github.com/DevEmmy/eventfi-backend-v2/internal/middleware"
)

// Router mounts the handler's routes behind the middleware stack.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. mw may be nil for the default configuration.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		chiMiddleware: mw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.PrometheusMetrics).Get("/health", router.handler.Health)

		// The upgrade stays outside the metrics middleware, whose response
		// writer cannot be hijacked.
		r.With(router.chiMiddleware.RateLimit(), router.auth.Authenticate).
			Get("/ws", router.handler.WebSocket)

		r.Route("/events/{id}/chat", func(r chi.Router) {
			r.Use(middleware.PrometheusMetrics)
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.auth.Authenticate)

			r.Get("/", router.handler.GetChat)
			r.Get("/messages", router.handler.GetMessages)
			r.Get("/messages/pinned", router.handler.GetPinnedMessages)
			r.Get("/members", router.handler.ListMembers)
			r.Get("/audit", router.handler.GetAuditTrail)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitWrites())
				r.Post("/messages", router.handler.SendMessage)
				r.Patch("/messages/{messageId}", router.handler.ModerateMessage)
				r.Post("/members/{userId}/mute", router.handler.MuteUser)
				r.Patch("/settings", router.handler.UpdateSettings)
			})
		})
	})

	return r
}
