// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

//go:build !nats

package chatevents

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
)

// NewTransport returns the in-process transport. Build with -tags=nats for
// NATS JetStream.
func NewTransport(_ *config.EventsConfig, logger watermill.LoggerAdapter) (*Transport, error) {
	return NewLocalTransport(logger), nil
}
