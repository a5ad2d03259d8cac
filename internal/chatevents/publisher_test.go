// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chatevents

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

const testTopic = "chat.events"

var testAt = time.Date(2026, 6, 1, 18, 30, 0, 0, time.UTC)

type failingPublisher struct {
	calls int32
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	atomic.AddInt32(&p.calls, 1)
	return errors.New("broker unreachable")
}

func (p *failingPublisher) Close() error { return nil }

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func muteNotification() chat.Notification {
	return chat.Notification{
		Kind:     chat.KindMemberMuted,
		EventID:  "evt-1",
		ChatID:   "chat-1",
		ActorID:  "mod",
		TargetID: "alice",
		Detail:   map[string]string{"durationMinutes": "5"},
		At:       testAt,
	}
}

func TestPublisher_NotifyDelivers(t *testing.T) {
	transport := NewLocalTransport(nil)
	t.Cleanup(func() { _ = transport.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := transport.Subscriber.Subscribe(ctx, testTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	pub := NewPublisher(transport.Publisher, testTopic, nil)
	reqCtx := logging.ContextWithRequestID(context.Background(), "req-42")
	if err := pub.Notify(reqCtx, muteNotification()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		evt, err := Unmarshal(msg.Payload)
		if err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if evt.ID != msg.UUID || evt.Kind != chat.KindMemberMuted || evt.TargetID != "alice" || !evt.OccurredAt.Equal(testAt) {
			t.Errorf("unexpected event: %+v", evt)
		}
		if msg.Metadata.Get(MetadataKind) != chat.KindMemberMuted || msg.Metadata.Get(MetadataRequestID) != "req-42" {
			t.Errorf("unexpected metadata: %v", msg.Metadata)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestPublisher_BreakerOpens(t *testing.T) {
	failing := &failingPublisher{}
	cb := NewCircuitBreaker(BreakerConfig{Name: "test-chat-events", FailureThreshold: 2, Timeout: time.Minute})
	pub := NewPublisher(failing, testTopic, cb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := pub.Notify(ctx, muteNotification()); err == nil {
			t.Fatal("expected publish error")
		}
	}
	err := pub.Notify(ctx, muteNotification())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls := atomic.LoadInt32(&failing.calls); calls != 2 {
		t.Errorf("transport called %d times, want 2", calls)
	}
}

func TestPublisher_Closed(t *testing.T) {
	pub := NewPublisher(&failingPublisher{}, testTopic, nil)
	pub.Close()
	if err := pub.Notify(context.Background(), muteNotification()); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("expected ErrPublisherClosed, got %v", err)
	}
}

func TestUnmarshal(t *testing.T) {
	good, err := Marshal(FromNotification("id-1", muteNotification()))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", string(good), false},
		{"not json", "{", true},
		{"future version", `{"id":"x","v":99,"kind":"member.muted"}`, true},
		{"missing kind", `{"id":"x","v":1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	evt, _ := Unmarshal(good)
	n := evt.Notification()
	if n.Kind != chat.KindMemberMuted || n.Detail["durationMinutes"] != "5" || !n.At.Equal(testAt) {
		t.Errorf("notification did not round-trip: %+v", n)
	}
}
