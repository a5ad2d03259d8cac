// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chatevents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
)

// ErrPublisherClosed is returned by Notify after Close.
var ErrPublisherClosed = errors.New("chat event publisher is closed")

// Publish outcomes recorded in metrics.
const (
	resultOK       = "ok"
	resultError    = "error"
	resultRejected = "rejected"
)

// Publisher publishes chat notifications. It implements chat.Notifier.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	topic          string
	newID          func() string

	mu     sync.RWMutex
	closed bool
}

var _ chat.Notifier = (*Publisher)(nil)

// NewPublisher wraps pub. Messages go to topic through cb.
func NewPublisher(pub message.Publisher, topic string, cb *gobreaker.CircuitBreaker[interface{}]) *Publisher {
	return &Publisher{
		publisher:      pub,
		circuitBreaker: cb,
		topic:          topic,
		newID:          uuid.NewString,
	}
}

// Notify serializes n and publishes it. While the breaker is open the call
// fails fast without touching the transport.
func (p *Publisher) Notify(ctx context.Context, n chat.Notification) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	evt := FromNotification(p.newID(), n)
	payload, err := Marshal(evt)
	if err != nil {
		metrics.RecordEventPublish(n.Kind, resultError)
		return err
	}

	msg := message.NewMessage(evt.ID, payload)
	msg.Metadata.Set(MetadataKind, evt.Kind)
	msg.Metadata.Set(MetadataEventID, evt.EventID)
	if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
		msg.Metadata.Set(MetadataRequestID, reqID)
	}

	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(p.topic, msg)
		})
	} else {
		err = p.publisher.Publish(p.topic, msg)
	}

	switch {
	case err == nil:
		metrics.RecordEventPublish(evt.Kind, resultOK)
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordEventPublish(evt.Kind, resultRejected)
	default:
		metrics.RecordEventPublish(evt.Kind, resultError)
	}
	return fmt.Errorf("publish %s: %w", evt.Kind, err)
}

// Close stops publishing. The underlying transport is owned by the caller.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
