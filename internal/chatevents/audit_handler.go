// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chatevents

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/DevEmmy/eventfi-backend-v2/internal/audit"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
)

// AuditHandlerName is the router handler name of the audit recorder.
const AuditHandlerName = "chat-audit"

// Recorder persists audit entries.
type Recorder interface {
	Save(ctx context.Context, entry *audit.Entry) error
}

// AuditHandler records moderation and settings events. Other kinds are
// acknowledged and skipped. Malformed payloads are logged and dropped
// rather than retried.
func AuditHandler(rec Recorder) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		evt, err := Unmarshal(msg.Payload)
		if err != nil {
			logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed chat event")
			metrics.RecordEventConsumed(AuditHandlerName, err)
			return nil
		}
		if !evt.Notification().IsModeration() {
			return nil
		}

		entry := &audit.Entry{
			ID:           evt.ID,
			EventID:      evt.EventID,
			ChatID:       evt.ChatID,
			Action:       evt.Kind,
			ActorID:      evt.ActorID,
			TargetUserID: evt.TargetID,
			MessageID:    evt.MessageID,
			Detail:       evt.Detail,
			OccurredAt:   evt.OccurredAt,
		}
		err = rec.Save(msg.Context(), entry)
		metrics.RecordEventConsumed(AuditHandlerName, err)
		if err != nil {
			return fmt.Errorf("record audit entry %s: %w", evt.ID, err)
		}
		return nil
	}
}

// Wire subscribes the audit recorder to topic on r.
func Wire(r *Router, t *Transport, topic string, rec Recorder) {
	r.AddConsumerHandler(AuditHandlerName, topic, t.Subscriber, AuditHandler(rec))
}
