// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DevEmmy/eventfi-backend-v2/internal/authz"
	"github.com/DevEmmy/eventfi-backend-v2/internal/database"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// Sender identifies the author of a message.
type Sender struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// ReplyPreview is a shortened view of the message being replied to.
type ReplyPreview struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
}

// MessageView is a message formatted for clients.
type MessageView struct {
	ID        string             `json:"id"`
	ChatID    string             `json:"chatId"`
	Sender    Sender             `json:"sender"`
	Content   string             `json:"content"`
	Type      models.MessageType `json:"type"`
	ReplyToID *string            `json:"replyToId,omitempty"`
	ReplyTo   *ReplyPreview      `json:"replyTo,omitempty"`
	IsPinned  bool               `json:"isPinned"`
	CreatedAt time.Time          `json:"createdAt"`
}

// MessagePage is one page of history in ascending time order.
type MessagePage struct {
	Messages []MessageView `json:"messages"`
	HasMore  bool          `json:"hasMore"`
}

// SendInput is the payload of a send.
type SendInput struct {
	Content   string             `json:"content"`
	Type      models.MessageType `json:"type,omitempty"`
	ReplyToID string             `json:"replyToId,omitempty"`
}

// ModerationAction is applied to a message.
type ModerationAction string

// Moderation actions.
const (
	ActionDelete ModerationAction = "delete"
	ActionPin    ModerationAction = "pin"
	ActionUnpin  ModerationAction = "unpin"
)

// Valid reports whether a is a known action.
func (a ModerationAction) Valid() bool {
	switch a {
	case ActionDelete, ActionPin, ActionUnpin:
		return true
	}
	return false
}

// ModerationResult is the state of a message after moderation.
type ModerationResult struct {
	MessageID string           `json:"messageId"`
	Action    ModerationAction `json:"action"`
	IsPinned  bool             `json:"isPinned"`
	IsDeleted bool             `json:"isDeleted"`
	DeletedBy *string          `json:"deletedBy,omitempty"`
}

// MuteResult is the mute state of a member after MuteUser.
type MuteResult struct {
	UserID     string     `json:"userId"`
	IsMuted    bool       `json:"isMuted"`
	MutedUntil *time.Time `json:"mutedUntil,omitempty"`
}

// SendMessage validates and persists a message from userID.
func (s *Service) SendMessage(ctx context.Context, eventID, userID string, in SendInput) (*MessageView, error) {
	const op = "send"

	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return nil, s.reject(ctx, op, newError(CodeMessageTooLong, "message exceeds %d characters", MaxContentLength))
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, s.reject(ctx, op, newError(CodeValidation, "message content is required"))
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !in.Type.Valid() {
		return nil, s.reject(ctx, op, newError(CodeValidation, "unknown message type %q", in.Type))
	}
	if in.Type == models.MessageSystem {
		return nil, s.reject(ctx, op, newError(CodeValidation, "system messages cannot be sent by users"))
	}

	event, chat, err := s.loadChat(ctx, eventID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}
	if !s.IsJoinable(chat, event) {
		return nil, s.reject(ctx, op, newError(CodeChatDisabled, "chat is disabled"))
	}

	membership, err := s.store.GetMembership(ctx, chat.ID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "join the chat before sending messages"))
		}
		return nil, fmt.Errorf("load membership: %w", err)
	}

	now := s.clock()
	if membership.IsMuted {
		if membership.MuteActive(now) {
			e := newError(CodeUserMuted, "you are muted in this chat")
			if membership.MutedUntil != nil {
				e.RetryAfter = ceilSeconds(membership.MutedUntil.Sub(now))
				e.Message = fmt.Sprintf("you are muted for %d more seconds", e.RetryAfter)
			}
			return nil, s.reject(ctx, op, e)
		}
		if err := s.store.SetMute(ctx, membership.ID, false, nil); err != nil {
			return nil, fmt.Errorf("clear expired mute: %w", err)
		}
	}

	role, err := s.effectiveRole(ctx, event, membership)
	if err != nil {
		return nil, err
	}
	if !s.authz.Allowed(string(role), authz.ActionSend) {
		return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "your role cannot send messages"))
	}
	if in.Type == models.MessageAnnouncement && !s.authz.Allowed(string(role), authz.ActionAnnounce) {
		return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "only the organizer can post announcements"))
	}

	var replyTo *models.Message
	if in.ReplyToID != "" {
		replyTo, err = s.store.GetMessage(ctx, in.ReplyToID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("load reply target: %w", err)
		}
		if replyTo == nil || replyTo.ChatID != chat.ID || replyTo.IsDeleted {
			return nil, s.reject(ctx, op, newError(CodeNotFound, "reply target %s not found in this chat", in.ReplyToID))
		}
	}

	msg, err := s.insertMessage(ctx, chat, role, userID, in)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}

	if err := s.store.TouchMembership(ctx, chat.ID, userID, msg.CreatedAt); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chat.ID).Msg("failed to bump last seen after send")
	}
	metrics.RecordMessageSent(string(msg.Type))
	s.notify(ctx, Notification{
		Kind:      KindMessageSent,
		EventID:   eventID,
		ChatID:    chat.ID,
		ActorID:   userID,
		MessageID: msg.ID,
		Detail:    map[string]string{"type": string(msg.Type)},
	})

	views, err := s.formatMessages(ctx, []models.Message{*msg}, map[string]*models.Message{in.ReplyToID: replyTo})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// insertMessage applies slow mode and persists the message. The check and
// the insert run under a per-sender lock so that concurrent sends from one
// process cannot both pass the check.
func (s *Service) insertMessage(ctx context.Context, chat *models.Chat, role models.Role, userID string, in SendInput) (*models.Message, error) {
	unlock := s.senders.lock(chat.ID + "/" + userID)
	defer unlock()

	now := s.clock()
	if chat.SlowMode > 0 && role == models.RoleMember {
		last, err := s.store.LatestMessageBySender(ctx, chat.ID, userID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("load latest message: %w", err)
		}
		if last != nil {
			window := time.Duration(chat.SlowMode) * time.Second
			if elapsed := now.Sub(last.CreatedAt); elapsed < window {
				e := newError(CodeSlowMode, "slow mode is on, wait %d seconds", ceilSeconds(window-elapsed))
				e.RetryAfter = ceilSeconds(window - elapsed)
				return nil, e
			}
		}
	}

	msg := &models.Message{
		ID:        s.newID(),
		ChatID:    chat.ID,
		SenderID:  userID,
		Content:   in.Content,
		Type:      in.Type,
		CreatedAt: now,
	}
	if in.ReplyToID != "" {
		reply := in.ReplyToID
		msg.ReplyToID = &reply
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ModerateMessage deletes, pins or unpins a message. Members may delete
// their own messages; deleting someone else's needs delete_any. Pinning
// needs the pin permission.
func (s *Service) ModerateMessage(ctx context.Context, eventID, messageID, userID string, action ModerationAction) (*ModerationResult, error) {
	const op = "moderate"
	if !action.Valid() {
		return nil, s.reject(ctx, op, newError(CodeValidation, "action must be one of delete, pin, unpin"))
	}

	a, err := s.loadActor(ctx, eventID, userID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}

	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg == nil || msg.ChatID != a.chat.ID || msg.IsDeleted {
		return nil, s.reject(ctx, op, newError(CodeNotFound, "message %s not found", messageID))
	}

	role := string(a.role)
	var kind string
	switch action {
	case ActionDelete:
		own := msg.SenderID == userID
		allowed := (own && s.authz.Allowed(role, authz.ActionDeleteOwn)) ||
			s.authz.Allowed(role, authz.ActionDeleteAny)
		if !allowed {
			return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "you cannot delete this message"))
		}
		if err := s.store.MarkMessageDeleted(ctx, msg.ID, userID); err != nil {
			return nil, fmt.Errorf("delete message: %w", err)
		}
		msg.IsDeleted = true
		msg.IsPinned = false
		msg.DeletedBy = &userID
		kind = KindMessageDeleted

	case ActionPin, ActionUnpin:
		if !s.authz.Allowed(role, authz.ActionPin) {
			return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "you cannot pin messages"))
		}
		pinned := action == ActionPin
		if err := s.store.SetMessagePinned(ctx, msg.ID, pinned); err != nil {
			return nil, fmt.Errorf("pin message: %w", err)
		}
		msg.IsPinned = pinned
		kind = KindMessagePinned
		if !pinned {
			kind = KindMessageUnpinned
		}
	}

	metrics.RecordModeration(string(action))
	s.notify(ctx, Notification{
		Kind:      kind,
		EventID:   eventID,
		ChatID:    a.chat.ID,
		ActorID:   userID,
		TargetID:  msg.SenderID,
		MessageID: msg.ID,
	})
	return &ModerationResult{
		MessageID: msg.ID,
		Action:    action,
		IsPinned:  msg.IsPinned,
		IsDeleted: msg.IsDeleted,
		DeletedBy: msg.DeletedBy,
	}, nil
}

// MuteUser mutes targetUserID for durationMinutes, or unmutes when the
// duration is zero. The actor needs the mute permission and a strictly
// higher rank than the target.
func (s *Service) MuteUser(ctx context.Context, eventID, targetUserID, actorUserID string, durationMinutes int) (*MuteResult, error) {
	const op = "mute"
	if durationMinutes < 0 {
		return nil, s.reject(ctx, op, newError(CodeValidation, "duration must not be negative"))
	}

	a, err := s.loadActor(ctx, eventID, actorUserID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}
	if !s.authz.Allowed(string(a.role), authz.ActionMute) {
		return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "you cannot mute members"))
	}

	target, err := s.store.GetMembership(ctx, a.chat.ID, targetUserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, s.reject(ctx, op, newError(CodeNotFound, "user %s is not a member of this chat", targetUserID))
		}
		return nil, fmt.Errorf("load target membership: %w", err)
	}
	targetRole, err := s.effectiveRole(ctx, a.event, target)
	if err != nil {
		return nil, err
	}
	if a.role.Rank() <= targetRole.Rank() {
		return nil, s.reject(ctx, op, newError(CodeNotAuthorized, "you can only mute members below your role"))
	}

	result := &MuteResult{UserID: targetUserID}
	kind := KindMemberUnmuted
	if durationMinutes > 0 {
		until := s.clock().Add(time.Duration(durationMinutes) * time.Minute)
		result.IsMuted = true
		result.MutedUntil = &until
		kind = KindMemberMuted
	}
	if err := s.store.SetMute(ctx, target.ID, result.IsMuted, result.MutedUntil); err != nil {
		return nil, fmt.Errorf("set mute: %w", err)
	}

	metricAction := "unmute"
	if result.IsMuted {
		metricAction = "mute"
	}
	metrics.RecordModeration(metricAction)
	s.notify(ctx, Notification{
		Kind:     kind,
		EventID:  eventID,
		ChatID:   a.chat.ID,
		ActorID:  actorUserID,
		TargetID: targetUserID,
		Detail:   map[string]string{"durationMinutes": strconv.Itoa(durationMinutes)},
	})
	return result, nil
}

// GetMessages returns a page of history older than the message before (the
// newest page when empty), in ascending time order. Deleted messages are
// skipped.
func (s *Service) GetMessages(ctx context.Context, eventID, userID, before string, limit int) (*MessagePage, error) {
	const op = "history"
	a, err := s.loadActor(ctx, eventID, userID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}
	return s.history(ctx, a.chat, before, clampLimit(limit))
}

// RecentMessages returns the latest SnapshotSize messages of a chat.
func (s *Service) RecentMessages(ctx context.Context, chatID string) (*MessagePage, error) {
	return s.history(ctx, &models.Chat{ID: chatID}, "", SnapshotSize)
}

func (s *Service) history(ctx context.Context, chat *models.Chat, before string, limit int) (*MessagePage, error) {
	var cursor *models.Message
	if before != "" {
		m, err := s.store.GetMessage(ctx, before)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
		if m == nil || m.ChatID != chat.ID {
			return nil, s.reject(ctx, "history", newError(CodeNotFound, "cursor message %s not found", before))
		}
		cursor = m
	}

	msgs, err := s.store.ListMessages(ctx, chat.ID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &MessagePage{Messages: []MessageView{}}
	if len(msgs) == 0 {
		return page, nil
	}
	page.HasMore, err = s.store.HasMessagesBefore(ctx, chat.ID, &msgs[len(msgs)-1])
	if err != nil {
		return nil, fmt.Errorf("check older messages: %w", err)
	}

	// newest-first from the store; clients read oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	page.Messages, err = s.formatMessages(ctx, msgs, nil)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetPinnedMessages returns pinned messages, newest first.
func (s *Service) GetPinnedMessages(ctx context.Context, eventID, userID string) ([]MessageView, error) {
	const op = "pinned"
	a, err := s.loadActor(ctx, eventID, userID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}
	msgs, err := s.store.ListPinnedMessages(ctx, a.chat.ID)
	if err != nil {
		return nil, fmt.Errorf("list pinned messages: %w", err)
	}
	return s.formatMessages(ctx, msgs, nil)
}

// formatMessages resolves sender profiles and reply previews. known holds
// reply targets the caller already loaded.
func (s *Service) formatMessages(ctx context.Context, msgs []models.Message, known map[string]*models.Message) ([]MessageView, error) {
	replies := make(map[string]*models.Message)
	var missing []string
	for i := range msgs {
		if id := msgs[i].ReplyToID; id != nil {
			if m := known[*id]; m != nil {
				replies[*id] = m
			} else {
				missing = append(missing, *id)
			}
		}
	}
	if len(missing) > 0 {
		loaded, err := s.store.GetMessages(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("load reply targets: %w", err)
		}
		for id, m := range loaded {
			replies[id] = m
		}
	}

	seen := make(map[string]bool)
	var userIDs []string
	addUser := func(id string) {
		if !seen[id] {
			seen[id] = true
			userIDs = append(userIDs, id)
		}
	}
	for i := range msgs {
		addUser(msgs[i].SenderID)
	}
	for _, r := range replies {
		if !r.IsDeleted {
			addUser(r.SenderID)
		}
	}
	profiles, err := s.dir.GetProfiles(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	out := make([]MessageView, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		p := profiles[m.SenderID]
		out[i] = MessageView{
			ID:        m.ID,
			ChatID:    m.ChatID,
			Sender:    Sender{ID: m.SenderID, DisplayName: displayName(p, m.SenderID), Avatar: p.Avatar},
			Content:   m.Content,
			Type:      m.Type,
			ReplyToID: m.ReplyToID,
			IsPinned:  m.IsPinned,
			CreatedAt: m.CreatedAt,
		}
		if m.ReplyToID == nil {
			continue
		}
		if r := replies[*m.ReplyToID]; r != nil && !r.IsDeleted {
			out[i].ReplyTo = &ReplyPreview{
				ID:         r.ID,
				Content:    truncate(r.Content, ReplyPreviewLength),
				SenderID:   r.SenderID,
				SenderName: displayName(profiles[r.SenderID], r.SenderID),
			}
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
