// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/DevEmmy/eventfi-backend-v2/internal/audit"
	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/chatevents"
)

var (
	_ suture.Service = (*ChatEventRouterService)(nil)
	_ EventRouter    = (*chatevents.Router)(nil)
)

// stubRouter returns runErr at once, or blocks until canceled when block is set.
type stubRouter struct {
	runErr error
	block  bool
	closed atomic.Bool
}

func (s *stubRouter) RunWithContext(ctx context.Context) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.runErr
}

func (s *stubRouter) Close() error {
	s.closed.Store(true)
	return nil
}

func TestChatEventRouterService_Serve(t *testing.T) {
	runErr := errors.New("subscribe failed")
	buildErr := errors.New("bad config")

	tests := []struct {
		name       string
		router     *stubRouter
		buildErr   error
		cancel     bool
		want       error
		wantClosed bool
	}{
		{"run error is returned and router closed", &stubRouter{runErr: runErr}, nil, false, runErr, true},
		{"silent stop counts as failure", &stubRouter{}, nil, false, errRouterStopped, true},
		{"cancellation is clean", &stubRouter{block: true}, nil, true, context.Canceled, false},
		{"build error is returned", nil, buildErr, false, buildErr, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewChatEventRouterService(func() (EventRouter, error) {
				if tt.buildErr != nil {
					return nil, tt.buildErr
				}
				return tt.router, nil
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				time.AfterFunc(20*time.Millisecond, cancel)
			}

			err := svc.Serve(ctx)
			if !errors.Is(err, tt.want) {
				t.Errorf("Serve() = %v, want %v", err, tt.want)
			}
			if tt.router != nil && tt.router.closed.Load() != tt.wantClosed {
				t.Errorf("router closed = %v, want %v", tt.router.closed.Load(), tt.wantClosed)
			}
		})
	}
}

func TestChatEventRouterService_RebuildsOnRestart(t *testing.T) {
	var builds atomic.Int32
	svc := NewChatEventRouterService(func() (EventRouter, error) {
		if builds.Add(1) < 3 {
			return &stubRouter{runErr: errors.New("flaky")}, nil
		}
		return &stubRouter{block: true}, nil
	})

	sup := suture.New("test-messaging", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for builds.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-errCh

	if builds.Load() < 3 {
		t.Errorf("router built %d times, want a fresh router per restart", builds.Load())
	}
}

func TestChatEventRouterService_RecordsAudit(t *testing.T) {
	const topic = "chat.events.test"
	transport := chatevents.NewLocalTransport(nil)
	t.Cleanup(func() { _ = transport.Close() })
	store := audit.NewMemoryStore(10)

	running := make(chan *chatevents.Router, 1)
	svc := NewChatEventRouterService(func() (EventRouter, error) {
		cfg := chatevents.DefaultRouterConfig()
		cfg.CloseTimeout = time.Second
		r, err := chatevents.NewRouter(cfg, nil)
		if err != nil {
			return nil, err
		}
		chatevents.Wire(r, transport, topic, store)
		running <- r
		return r, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	r := <-running
	select {
	case <-r.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	pub := chatevents.NewPublisher(transport.Publisher, topic, chatevents.NewCircuitBreaker(chatevents.BreakerConfig{Name: "test-router-service"}))
	err := pub.Notify(context.Background(), chat.Notification{
		Kind:     chat.KindMemberMuted,
		EventID:  "evt-1",
		ChatID:   "chat-1",
		ActorID:  "org",
		TargetID: "alice",
		At:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if store.Len() != 1 {
		t.Fatalf("audit entries = %d, want 1", store.Len())
	}
}
