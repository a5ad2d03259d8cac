// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Command server runs the EventFi event chat service: the chat REST endpoints
under /api/v1, the realtime websocket gateway at /api/v1/ws, health and
Prometheus metrics.

# Process Tree

	RootSupervisor ("eventfi-chat")
	├── MessagingSupervisor ("messaging-layer")
	│   └── chat-event-router (audit trail consumer)
	├── RealtimeSupervisor ("realtime-layer")
	│   └── websocket-hub
	└── APISupervisor ("api-layer")
	    └── http-server

Startup order: configuration, logging, DuckDB (chat tables and the audit
table), the casbin enforcer, the chat event transport, the chat service,
then the hub, gateway and router. The tree runs until SIGINT or SIGTERM.

# Configuration

Defaults, then an optional YAML file (CONFIG_PATH or ./config.yaml), then
environment variables:

	JWT_SECRET=<32+ chars>        # verifies tokens from the EventFi auth service
	HTTP_PORT=8080
	DUCKDB_PATH=/data/eventfi-chat.duckdb
	CORS_ORIGINS=https://app.eventfi.io
	LOG_LEVEL=info                # trace, debug, info, warn, error
	LOG_FORMAT=json               # json or console
	CHAT_EVENTS_ENABLED=true
	NATS_EMBEDDED=true            # -tags nats only
	NATS_URL=nats://nats:4222     # -tags nats, when not embedded

# Build Tags

	go build ./cmd/server               # in-process notifications
	go build -tags nats ./cmd/server    # NATS JetStream notifications
*/
package main
