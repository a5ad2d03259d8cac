// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package chatevents carries chat notifications over watermill.
//
// The chat service hands every notification to a Publisher, which
// serializes it and publishes it on the configured topic behind a circuit
// breaker. A Router consumes the topic; the audit handler records
// moderation activity. Without the nats build tag the transport is an
// in-process go channel; with it, NATS JetStream (optionally embedded).
package chatevents

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
)

// SchemaVersion is bumped on incompatible payload changes.
const SchemaVersion = 1

// Metadata keys set on every published message.
const (
	MetadataKind      = "kind"
	MetadataEventID   = "event_id"
	MetadataRequestID = "request_id"
)

// Event is the wire form of a chat notification.
type Event struct {
	ID         string            `json:"id"`
	Version    int               `json:"v"`
	Kind       string            `json:"kind"`
	EventID    string            `json:"eventId"`
	ChatID     string            `json:"chatId"`
	ActorID    string            `json:"actorId"`
	TargetID   string            `json:"targetId,omitempty"`
	MessageID  string            `json:"messageId,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// FromNotification builds the wire event for n.
func FromNotification(id string, n chat.Notification) *Event {
	return &Event{
		ID:         id,
		Version:    SchemaVersion,
		Kind:       n.Kind,
		EventID:    n.EventID,
		ChatID:     n.ChatID,
		ActorID:    n.ActorID,
		TargetID:   n.TargetID,
		MessageID:  n.MessageID,
		Detail:     n.Detail,
		OccurredAt: n.At,
	}
}

// Notification converts e back to the chat form.
func (e *Event) Notification() chat.Notification {
	return chat.Notification{
		Kind:      e.Kind,
		EventID:   e.EventID,
		ChatID:    e.ChatID,
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		MessageID: e.MessageID,
		Detail:    e.Detail,
		At:        e.OccurredAt,
	}
}

// Marshal encodes e.
func Marshal(e *Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal chat event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a payload and rejects versions it does not understand.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal chat event: %w", err)
	}
	if e.Version > SchemaVersion {
		return nil, fmt.Errorf("unsupported chat event version %d", e.Version)
	}
	if e.ID == "" || e.Kind == "" {
		return nil, fmt.Errorf("chat event missing id or kind")
	}
	return &e, nil
}
