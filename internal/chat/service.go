// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package chat implements the event chat core: chat lifecycle, role
// resolution, the message pipeline and presence.
//
// Every operation returns either a result or an error. Rule violations are
// *Error values carrying a stable Code; any other error is an
// infrastructure failure. Notifications to other collaborators are best
// effort and never fail the operation that triggered them.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// Limits.
const (
	MaxContentLength   = 1000
	DefaultPageSize    = 50
	MaxPageSize        = 100
	SnapshotSize       = 50
	ReplyPreviewLength = 100
	MaxSlowMode        = 3600
	PresenceWindow     = 5 * time.Minute
	GracePeriod        = 24 * time.Hour
)

// Store persists chats, memberships and messages.
type Store interface {
	GetChatByEvent(ctx context.Context, eventID string) (*models.Chat, error)
	CreateChatIfAbsent(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	UpdateChatSettings(ctx context.Context, chatID string, patch models.ChatSettingsPatch, at time.Time) (*models.Chat, error)

	GetMembership(ctx context.Context, chatID, userID string) (*models.Membership, error)
	UpsertMembership(ctx context.Context, m *models.Membership) (*models.Membership, error)
	TouchMembership(ctx context.Context, chatID, userID string, at time.Time) error
	UpdateMembershipRole(ctx context.Context, membershipID string, role models.Role) error
	SetMute(ctx context.Context, membershipID string, muted bool, until *time.Time) error
	CountMembers(ctx context.Context, chatID string, seenSince *time.Time) (int, error)
	ListMembers(ctx context.Context, chatID string, seenSince *time.Time, limit int) ([]models.Membership, error)

	InsertMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetMessages(ctx context.Context, ids []string) (map[string]*models.Message, error)
	LatestMessageBySender(ctx context.Context, chatID, senderID string) (*models.Message, error)
	ListMessages(ctx context.Context, chatID string, before *models.Message, limit int) ([]models.Message, error)
	HasMessagesBefore(ctx context.Context, chatID string, before *models.Message) (bool, error)
	ListPinnedMessages(ctx context.Context, chatID string) ([]models.Message, error)
	SetMessagePinned(ctx context.Context, id string, pinned bool) error
	MarkMessageDeleted(ctx context.Context, id, deletedBy string) error
}

// Directory answers lookups against records owned by other EventFi services.
// Missing records are reported with database.ErrNotFound.
type Directory interface {
	GetEvent(ctx context.Context, eventID string) (*models.EventRef, error)
	GetTeamMember(ctx context.Context, eventID, userID string) (*models.TeamMember, error)
	HasConfirmedTicket(ctx context.Context, eventID, userID string) (bool, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error)
}

// Authorizer answers permission questions for chat roles.
type Authorizer interface {
	Allowed(role, action string) bool
}

// Notifier receives best-effort notifications about chat activity.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Config wires a Service.
type Config struct {
	Store      Store
	Directory  Directory
	Authorizer Authorizer

	// Notifier is optional.
	Notifier Notifier

	// Now and NewID default to the wall clock and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// Service implements the chat operations.
type Service struct {
	store    Store
	dir      Directory
	authz    Authorizer
	notifier Notifier
	now      func() time.Time
	newID    func() string
	senders  *stripedLock
}

// NewService creates a chat service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil || cfg.Directory == nil || cfg.Authorizer == nil {
		return nil, errors.New("chat: store, directory and authorizer are required")
	}
	s := &Service{
		store:    cfg.Store,
		dir:      cfg.Directory,
		authz:    cfg.Authorizer,
		notifier: cfg.Notifier,
		now:      cfg.Now,
		newID:    cfg.NewID,
		senders:  newStripedLock(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// clock returns the current time at storage precision.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// reject counts and returns a domain error.
func (s *Service) reject(ctx context.Context, op string, err *Error) error {
	metrics.RecordRejection(op, string(err.Code))
	logging.Ctx(ctx).Debug().Str("operation", op).Str("code", string(err.Code)).Msg(err.Message)
	return err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
