// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Package middleware provides the HTTP middleware shared by the REST routes.

  - RequestID: request and correlation IDs on the context, echoed in the
    X-Request-ID response header
  - PrometheusMetrics: request counts, latency and in-flight requests,
    labelled by chi route pattern so event IDs do not explode cardinality

Both are plain func(http.Handler) http.Handler values and are installed with
chi's Use:

	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	})
*/
package middleware
