// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package services

import (
	"context"
	"errors"
	"fmt"
)

// EventRouter is satisfied by *chatevents.Router.
type EventRouter interface {
	RunWithContext(ctx context.Context) error
	Close() error
}

// RouterFactory builds a router with its handlers registered.
type RouterFactory func() (EventRouter, error)

// errRouterStopped marks a router that returned without being asked to.
var errRouterStopped = errors.New("chat event router stopped unexpectedly")

// ChatEventRouterService runs the chat event router. Each Serve builds a
// new router through the factory, so a restart after a crash subscribes
// afresh instead of reusing a closed router.
type ChatEventRouterService struct {
	build RouterFactory
	name  string
}

// NewChatEventRouterService wraps build.
func NewChatEventRouterService(build RouterFactory) *ChatEventRouterService {
	return &ChatEventRouterService{
		build: build,
		name:  "chat-event-router",
	}
}

// Serve implements suture.Service.
func (s *ChatEventRouterService) Serve(ctx context.Context) error {
	router, err := s.build()
	if err != nil {
		return fmt.Errorf("build chat event router: %w", err)
	}

	err = router.RunWithContext(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Run returned on its own; release handlers before suture restarts us.
	_ = router.Close()
	if err == nil {
		err = errRouterStopped
	}
	return err
}

// String implements fmt.Stringer for supervisor logs.
func (s *ChatEventRouterService) String() string {
	return s.name
}
