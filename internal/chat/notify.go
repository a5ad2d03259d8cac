// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chat

import (
	"context"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

// Notification kinds.
const (
	KindMessageSent     = "message.sent"
	KindMessageDeleted  = "message.deleted"
	KindMessagePinned   = "message.pinned"
	KindMessageUnpinned = "message.unpinned"
	KindMemberJoined    = "member.joined"
	KindMemberMuted     = "member.muted"
	KindMemberUnmuted   = "member.unmuted"
	KindSettingsUpdated = "settings.updated"
)

// Notification describes something that happened in a chat.
type Notification struct {
	Kind      string            `json:"kind"`
	EventID   string            `json:"eventId"`
	ChatID    string            `json:"chatId"`
	ActorID   string            `json:"actorId"`
	TargetID  string            `json:"targetId,omitempty"`
	MessageID string            `json:"messageId,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
	At        time.Time         `json:"at"`
}

// IsModeration reports whether n records a moderation or settings change.
func (n Notification) IsModeration() bool {
	switch n.Kind {
	case KindMessageDeleted, KindMessagePinned, KindMessageUnpinned,
		KindMemberMuted, KindMemberUnmuted, KindSettingsUpdated:
		return true
	}
	return false
}

// notify hands n to the notifier. Failures are logged and dropped.
func (s *Service) notify(ctx context.Context, n Notification) {
	if s.notifier == nil {
		return
	}
	if n.At.IsZero() {
		n.At = s.clock()
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("kind", n.Kind).
			Str("chat_id", n.ChatID).
			Msg("Chat notification dropped")
	}
}
