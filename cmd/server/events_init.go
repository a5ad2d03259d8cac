// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package main

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/chatevents"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/supervisor"
	"github.com/DevEmmy/eventfi-backend-v2/internal/supervisor/services"
)

// EventComponents groups the notification pipeline: the transport, the
// breaker-guarded publisher handed to the chat service, and what is needed
// to build the audit router.
type EventComponents struct {
	transport *chatevents.Transport
	publisher *chatevents.Publisher

	topic     string
	recorder  chatevents.Recorder
	routerCfg chatevents.RouterConfig
	logger    watermill.LoggerAdapter
}

// InitEvents connects the transport selected at build time. It returns nil
// when notifications are disabled.
func InitEvents(cfg *config.EventsConfig, rec chatevents.Recorder, logger *slog.Logger) (*EventComponents, error) {
	if !cfg.Enabled {
		logging.Warn().Msg("Chat events disabled; moderation will not reach the audit trail")
		return nil, nil
	}

	wmLogger := watermill.NewSlogLogger(logger)
	transport, err := chatevents.NewTransport(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("connect chat event transport: %w", err)
	}

	breaker := chatevents.NewCircuitBreaker(chatevents.BreakerConfig{
		Name:             "chat-events",
		FailureThreshold: cfg.BreakerFailures,
		Timeout:          cfg.BreakerTimeout,
	})

	routerCfg := chatevents.DefaultRouterConfig()
	routerCfg.RetryMaxRetries = cfg.RouterRetries
	if cfg.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.RouterCloseTimeout
	}

	logging.Info().Str("transport", transport.Kind).Str("topic", cfg.Topic).Msg("Chat events initialized")

	return &EventComponents{
		transport: transport,
		publisher: chatevents.NewPublisher(transport.Publisher, cfg.Topic, breaker),
		topic:     cfg.Topic,
		recorder:  rec,
		routerCfg: routerCfg,
		logger:    wmLogger,
	}, nil
}

// Notifier returns the publisher as a chat.Notifier, or nil when events are
// disabled. The explicit nil keeps a typed nil out of the interface.
func (c *EventComponents) Notifier() chat.Notifier {
	if c == nil {
		return nil
	}
	return c.publisher
}

// BuildRouter creates a router with the audit handler subscribed.
func (c *EventComponents) BuildRouter() (services.EventRouter, error) {
	r, err := chatevents.NewRouter(c.routerCfg, c.logger)
	if err != nil {
		return nil, err
	}
	chatevents.Wire(r, c.transport, c.topic, c.recorder)
	return r, nil
}

// AddEventsToSupervisor puts the audit router under the messaging layer.
func AddEventsToSupervisor(tree *supervisor.SupervisorTree, c *EventComponents) {
	if c == nil {
		return
	}
	tree.AddMessagingService(services.NewChatEventRouterService(c.BuildRouter))
	logging.Info().Msg("Chat event router added to supervisor tree")
}

// Close stops publishing, then releases the transport. Call it after the
// supervisor tree has stopped.
func (c *EventComponents) Close() {
	if c == nil {
		return
	}
	c.publisher.Close()
	if err := c.transport.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing chat event transport")
	}
}
