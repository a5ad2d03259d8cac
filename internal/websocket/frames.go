// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package websocket

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
)

// Inbound event names.
const (
	EventJoin    = "join"
	EventLeave   = "leave"
	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
	EventPing    = "ping"
)

// Outbound event names.
const (
	EventJoined       = "joined"
	EventMemberJoined = "member:joined"
	EventMemberLeft   = "member:left"
	EventTypingStop   = "typing:stop"
	EventError        = "error"
	EventPong         = "pong"
)

// Frame is an inbound websocket frame.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutgoingFrame is a frame sent to clients.
type OutgoingFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// RoomPayload names the event room of join and leave frames.
type RoomPayload struct {
	EventID string `json:"eventId"`
}

// JoinedPayload is the snapshot sent to a connection after it joins.
type JoinedPayload struct {
	Chat     *chat.ChatInfo     `json:"chat"`
	Messages []chat.MessageView `json:"messages"`
}

// MemberPayload announces a user entering or leaving a room, or typing.
type MemberPayload struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
}

// ErrorPayload describes a failed inbound frame.
type ErrorPayload struct {
	Code       chat.Code `json:"code"`
	Message    string    `json:"message"`
	RetryAfter int       `json:"retryAfter,omitempty"`
	Event      string    `json:"event,omitempty"`
}

// MarshalFrame encodes an outgoing frame.
func MarshalFrame(event string, data interface{}) ([]byte, error) {
	return json.Marshal(OutgoingFrame{Event: event, Data: data})
}

func errorPayload(event string, err error) ErrorPayload {
	p := ErrorPayload{Code: chat.CodeOf(err), Event: event}
	var ce *chat.Error
	if errors.As(err, &ce) {
		p.Message = ce.Message
		p.RetryAfter = ce.RetryAfter
	} else {
		p.Message = "internal error"
	}
	return p
}

// eventLabel bounds metric label values to the known inbound events.
func eventLabel(event string) string {
	switch event {
	case EventJoin, EventLeave, EventMessage, EventTyping, EventRead, EventPing:
		return event
	}
	return "unknown"
}
