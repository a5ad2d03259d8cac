// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/DevEmmy/eventfi-backend-v2/internal/authz"
	"github.com/DevEmmy/eventfi-backend-v2/internal/database"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// loadEvent returns the event or a NOT_FOUND error.
func (s *Service) loadEvent(ctx context.Context, eventID string) (*models.EventRef, error) {
	event, err := s.dir.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(CodeNotFound, "event %s not found", eventID)
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	return event, nil
}

// loadChat returns the event and its existing chat. A missing chat is
// CHAT_NOT_FOUND; chats are only created by joining.
func (s *Service) loadChat(ctx context.Context, eventID string) (*models.EventRef, *models.Chat, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	chat, err := s.store.GetChatByEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, newError(CodeChatNotFound, "event %s has no chat yet", eventID)
		}
		return nil, nil, fmt.Errorf("load chat: %w", err)
	}
	return event, chat, nil
}

// GetOrCreateChat returns the chat of an event, creating it with defaults
// (active, no slow mode, members only) when absent. Concurrent callers get
// the same chat.
func (s *Service) GetOrCreateChat(ctx context.Context, eventID string) (*models.Chat, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.getOrCreateChat(ctx, event)
}

func (s *Service) getOrCreateChat(ctx context.Context, event *models.EventRef) (*models.Chat, error) {
	chat, err := s.store.GetChatByEvent(ctx, event.ID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load chat: %w", err)
	}

	now := s.clock()
	chat, err = s.store.CreateChatIfAbsent(ctx, &models.Chat{
		ID:          s.newID(),
		EventID:     event.ID,
		IsActive:    true,
		SlowMode:    0,
		MembersOnly: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

// IsJoinable reports whether the chat accepts joins and messages: it must
// be active and the event must not have ended more than GracePeriod ago.
func (s *Service) IsJoinable(chat *models.Chat, event *models.EventRef) bool {
	if !chat.IsActive {
		return false
	}
	return !s.clock().After(event.EndDate.Add(GracePeriod))
}

// UpdateSettings merges patch onto the event's chat. Only the organizer may
// change settings.
func (s *Service) UpdateSettings(ctx context.Context, eventID, actorID string, patch models.ChatSettingsPatch) (*models.Chat, error) {
	const op = "settings"
	if patch.Empty() {
		return nil, s.reject(ctx, op, newError(CodeValidation, "no settings to update"))
	}
	if patch.SlowMode != nil && (*patch.SlowMode < 0 || *patch.SlowMode > MaxSlowMode) {
		return nil, s.reject(ctx, op, newError(CodeValidation, "slowMode must be between 0 and %d seconds", MaxSlowMode))
	}

	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}
	role, err := s.resolveRole(ctx, event, actorID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Allowed(string(role), authz.ActionSettings) {
		return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "only the organizer can change chat settings"))
	}

	chat, err := s.getOrCreateChat(ctx, event)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateChatSettings(ctx, chat.ID, patch, s.clock())
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	detail := map[string]string{}
	if patch.SlowMode != nil {
		detail["slowMode"] = strconv.Itoa(updated.SlowMode)
	}
	if patch.IsActive != nil {
		detail["isActive"] = strconv.FormatBool(updated.IsActive)
	}
	if patch.MembersOnly != nil {
		detail["membersOnly"] = strconv.FormatBool(updated.MembersOnly)
	}
	s.notify(ctx, Notification{
		Kind:    KindSettingsUpdated,
		EventID: eventID,
		ChatID:  updated.ID,
		ActorID: actorID,
		Detail:  detail,
	})
	return updated, nil
}

// rejectOrWrap counts domain errors and passes others through.
func (s *Service) rejectOrWrap(ctx context.Context, op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return s.reject(ctx, op, e)
	}
	return err
}
