// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package audit keeps the moderation trail of event chats: deletions, pins,
// mutes and settings changes.
package audit

import (
	"context"
	"time"
)

// Entry is one recorded moderation action.
type Entry struct {
	// ID is the id of the chat notification the entry was built from, so
	// redelivered notifications map to the same entry.
	ID string `json:"id"`

	EventID      string            `json:"eventId"`
	ChatID       string            `json:"chatId"`
	Action       string            `json:"action"`
	ActorID      string            `json:"actorId"`
	TargetUserID string            `json:"targetUserId,omitempty"`
	MessageID    string            `json:"messageId,omitempty"`
	Detail       map[string]string `json:"detail,omitempty"`
	OccurredAt   time.Time         `json:"occurredAt"`
}

// QueryFilter selects entries. Zero fields match everything.
type QueryFilter struct {
	ChatID  string
	ActorID string
	Actions []string
	Since   *time.Time

	// Limit caps the result; entries are returned newest first.
	Limit int
}

// DefaultQueryLimit applies when QueryFilter.Limit is not positive.
const DefaultQueryLimit = 100

// Store persists audit entries. Save must be idempotent on Entry.ID.
type Store interface {
	Save(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
}

func (f QueryFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}
