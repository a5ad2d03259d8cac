// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DevEmmy/eventfi-backend-v2/internal/authz"
	"github.com/DevEmmy/eventfi-backend-v2/internal/database"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// Team roles that grant moderation in the event chat, after normalisation.
var elevatedTeamRoles = map[string]bool{
	"co_host": true,
	"cohost":  true,
	"manager": true,
}

// Permissions is the caller's capability set in a chat.
type Permissions struct {
	CanSend           bool `json:"canSend"`
	CanDeleteOwn      bool `json:"canDeleteOwn"`
	CanDeleteAny      bool `json:"canDeleteAny"`
	CanPin            bool `json:"canPin"`
	CanMute           bool `json:"canMute"`
	CanAnnounce       bool `json:"canAnnounce"`
	CanChangeSettings bool `json:"canChangeSettings"`
}

// ChatInfo describes a chat from the caller's point of view.
type ChatInfo struct {
	ID          string      `json:"id"`
	EventID     string      `json:"eventId"`
	EventTitle  string      `json:"eventTitle"`
	IsActive    bool        `json:"isActive"`
	SlowMode    int         `json:"slowMode"`
	MembersOnly bool        `json:"membersOnly"`
	MemberCount int         `json:"memberCount"`
	OnlineCount int         `json:"onlineCount"`
	Role        models.Role `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// JoinResult is the outcome of GetOrJoinChat. Chat is nil when the chat is
// disabled; Reason is set whenever CanJoin is false.
type JoinResult struct {
	Chat    *ChatInfo `json:"chat"`
	CanJoin bool      `json:"canJoin"`
	Reason  Code      `json:"reason,omitempty"`

	Membership *models.Membership `json:"-"`
}

func normalizeTeamRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	r = strings.ReplaceAll(r, "-", "_")
	return strings.ReplaceAll(r, " ", "_")
}

// ResolveRole derives the user's chat role from the event and team records.
func (s *Service) ResolveRole(ctx context.Context, eventID, userID string) (models.Role, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return "", err
	}
	return s.resolveRole(ctx, event, userID)
}

func (s *Service) resolveRole(ctx context.Context, event *models.EventRef, userID string) (models.Role, error) {
	if userID == event.OrganizerID {
		return models.RoleOrganizer, nil
	}
	tm, err := s.dir.GetTeamMember(ctx, event.ID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.RoleMember, nil
		}
		return "", fmt.Errorf("resolve role: %w", err)
	}
	if strings.EqualFold(tm.Status, "active") && elevatedTeamRoles[normalizeTeamRole(tm.Role)] {
		return models.RoleModerator, nil
	}
	return models.RoleMember, nil
}

// CheckJoinEligibility reports whether a user with role may join chat. In a
// members-only chat plain members need a confirmed ticket.
func (s *Service) CheckJoinEligibility(ctx context.Context, chat *models.Chat, userID string, role models.Role) (bool, error) {
	if !chat.MembersOnly || role.Rank() > models.RoleMember.Rank() {
		return true, nil
	}
	ok, err := s.dir.HasConfirmedTicket(ctx, chat.EventID, userID)
	if err != nil {
		return false, fmt.Errorf("check ticket: %w", err)
	}
	return ok, nil
}

// GetOrJoinChat runs the full join flow: the chat is created if needed, the
// caller's role is derived, eligibility is checked and the membership is
// created or refreshed. Safe to call repeatedly.
func (s *Service) GetOrJoinChat(ctx context.Context, eventID, userID string) (*JoinResult, error) {
	const op = "join"
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}
	chat, err := s.getOrCreateChat(ctx, event)
	if err != nil {
		return nil, err
	}

	if !s.IsJoinable(chat, event) {
		metrics.RecordJoin(string(CodeChatDisabled))
		return &JoinResult{CanJoin: false, Reason: CodeChatDisabled}, nil
	}

	role, err := s.resolveRole(ctx, event, userID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.CheckJoinEligibility(ctx, chat, userID, role)
	if err != nil {
		return nil, err
	}
	if !eligible {
		info, err := s.chatInfo(ctx, event, chat, role)
		if err != nil {
			return nil, err
		}
		metrics.RecordJoin(string(CodeNoTicket))
		return &JoinResult{Chat: info, CanJoin: false, Reason: CodeNoTicket}, nil
	}

	now := s.clock()
	newID := s.newID()
	membership, err := s.store.UpsertMembership(ctx, &models.Membership{
		ID:         newID,
		ChatID:     chat.ID,
		UserID:     userID,
		Role:       role,
		JoinedAt:   now,
		LastSeenAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("join chat: %w", err)
	}

	info, err := s.chatInfo(ctx, event, chat, role)
	if err != nil {
		return nil, err
	}
	metrics.RecordJoin("joined")

	if membership.ID == newID {
		s.notify(ctx, Notification{
			Kind:    KindMemberJoined,
			EventID: eventID,
			ChatID:  chat.ID,
			ActorID: userID,
			Detail:  map[string]string{"role": string(role)},
		})
	}
	return &JoinResult{Chat: info, CanJoin: true, Membership: membership}, nil
}

// Heartbeat refreshes the caller's last-seen time.
func (s *Service) Heartbeat(ctx context.Context, eventID, userID string) error {
	const op = "heartbeat"
	_, chat, err := s.loadChat(ctx, eventID)
	if err != nil {
		return s.rejectOrWrap(ctx, op, err)
	}
	if err := s.store.TouchMembership(ctx, chat.ID, userID, s.clock()); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return s.reject(ctx, op, newError(CodeNotAuthorized, "join the chat first"))
		}
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// actor is a member acting in a chat with its freshly derived role.
type actor struct {
	event      *models.EventRef
	chat       *models.Chat
	membership *models.Membership
	role       models.Role
}

// loadActor loads the chat and the caller's membership and re-derives the
// caller's role. The stored role is refreshed when it has drifted.
func (s *Service) loadActor(ctx context.Context, eventID, userID string) (*actor, error) {
	event, chat, err := s.loadChat(ctx, eventID)
	if err != nil {
		return nil, err
	}
	membership, err := s.store.GetMembership(ctx, chat.ID, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(CodeNotAuthorized, "join the chat first")
		}
		return nil, fmt.Errorf("load membership: %w", err)
	}
	role, err := s.effectiveRole(ctx, event, membership)
	if err != nil {
		return nil, err
	}
	return &actor{event: event, chat: chat, membership: membership, role: role}, nil
}

// effectiveRole re-derives the role of a membership. A drifted stored role
// is rewritten; failure to do so is only logged.
func (s *Service) effectiveRole(ctx context.Context, event *models.EventRef, m *models.Membership) (models.Role, error) {
	role, err := s.resolveRole(ctx, event, m.UserID)
	if err != nil {
		return "", err
	}
	if role != m.Role {
		if err := s.store.UpdateMembershipRole(ctx, m.ID, role); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("membership_id", m.ID).Msg("failed to refresh stored chat role")
		} else {
			m.Role = role
		}
	}
	return role, nil
}

func (s *Service) permissions(role models.Role) Permissions {
	r := string(role)
	return Permissions{
		CanSend:           s.authz.Allowed(r, authz.ActionSend),
		CanDeleteOwn:      s.authz.Allowed(r, authz.ActionDeleteOwn),
		CanDeleteAny:      s.authz.Allowed(r, authz.ActionDeleteAny),
		CanPin:            s.authz.Allowed(r, authz.ActionPin),
		CanMute:           s.authz.Allowed(r, authz.ActionMute),
		CanAnnounce:       s.authz.Allowed(r, authz.ActionAnnounce),
		CanChangeSettings: s.authz.Allowed(r, authz.ActionSettings),
	}
}

func (s *Service) chatInfo(ctx context.Context, event *models.EventRef, chat *models.Chat, role models.Role) (*ChatInfo, error) {
	members, online, err := s.counts(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	return &ChatInfo{
		ID:          chat.ID,
		EventID:     chat.EventID,
		EventTitle:  event.Title,
		IsActive:    chat.IsActive,
		SlowMode:    chat.SlowMode,
		MembersOnly: chat.MembersOnly,
		MemberCount: members,
		OnlineCount: online,
		Role:        role,
		Permissions: s.permissions(role),
	}, nil
}

// Authorize checks that userID is a member of the event's chat whose
// effective role grants action. Returns the role.
func (s *Service) Authorize(ctx context.Context, eventID, userID, action string) (models.Role, error) {
	a, err := s.loadActor(ctx, eventID, userID)
	if err != nil {
		return "", s.rejectOrWrap(ctx, action, err)
	}
	if !s.authz.Allowed(string(a.role), action) {
		return "", s.reject(ctx, action, newError(CodeNotAuthorized, "your role cannot %s in this chat", action))
	}
	return a.role, nil
}
