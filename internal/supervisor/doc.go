// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

/*
Package supervisor runs the chat server's long-lived components under a
suture v4 supervisor tree.

# Layout

	RootSupervisor ("eventfi-chat")
	├── MessagingSupervisor ("messaging-layer")
	│   └── ChatEventRouterService
	├── RealtimeSupervisor ("realtime-layer")
	│   └── WebSocketHubService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashing router restarts with backoff inside the messaging layer while
websocket rooms and the REST endpoints keep serving. Notifications published
while the router is down stay in the stream (NATS builds) or are dropped
(in-process builds); the chat service never waits on them.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewChatEventRouterService(buildRouter))
	tree.AddRealtimeService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Once it passes FailureThreshold the layer waits FailureBackoff before the
next restart. Returning suture.ErrDoNotRestart from Serve retires a
service for good.

# Not Supervised

The store and the audit trail are libraries owned by main, opened before the
tree starts and closed after it stops. The transport is closed after the
router so in-flight handlers can still ack.
*/
package supervisor
