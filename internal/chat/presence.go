// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// MemberView is a chat member with profile and presence.
type MemberView struct {
	UserID      string      `json:"userId"`
	DisplayName string      `json:"displayName"`
	Avatar      string      `json:"avatar,omitempty"`
	Role        models.Role `json:"role"`
	IsOnline    bool        `json:"isOnline"`
	IsMuted     bool        `json:"isMuted"`
	LastSeenAt  time.Time   `json:"lastSeenAt"`
	JoinedAt    time.Time   `json:"joinedAt"`
}

// onlineSince is the start of the presence window.
func (s *Service) onlineSince() time.Time {
	return s.clock().Add(-PresenceWindow)
}

// IsOnline reports whether lastSeen falls inside the presence window.
func (s *Service) IsOnline(lastSeen time.Time) bool {
	return !lastSeen.Before(s.onlineSince())
}

func (s *Service) counts(ctx context.Context, chatID string) (members, online int, err error) {
	members, err = s.store.CountMembers(ctx, chatID, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("count members: %w", err)
	}
	since := s.onlineSince()
	online, err = s.store.CountMembers(ctx, chatID, &since)
	if err != nil {
		return 0, 0, fmt.Errorf("count online members: %w", err)
	}
	return members, online, nil
}

// ListMembers lists members of the event's chat, most recently seen first.
// With onlineOnly only members inside the presence window are returned.
func (s *Service) ListMembers(ctx context.Context, eventID, userID string, onlineOnly bool, limit int) ([]MemberView, error) {
	const op = "members"
	a, err := s.loadActor(ctx, eventID, userID)
	if err != nil {
		return nil, s.rejectOrWrap(ctx, op, err)
	}

	var since *time.Time
	if onlineOnly {
		t := s.onlineSince()
		since = &t
	}
	members, err := s.store.ListMembers(ctx, a.chat.ID, since, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	profiles, err := s.dir.GetProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	now := s.clock()
	out := make([]MemberView, len(members))
	for i := range members {
		m := &members[i]
		p := profiles[m.UserID]
		out[i] = MemberView{
			UserID:      m.UserID,
			DisplayName: displayName(p, m.UserID),
			Avatar:      p.Avatar,
			Role:        m.Role,
			IsOnline:    s.IsOnline(m.LastSeenAt),
			IsMuted:     m.MuteActive(now),
			LastSeenAt:  m.LastSeenAt,
			JoinedAt:    m.JoinedAt,
		}
	}
	return out, nil
}

func displayName(p models.Profile, userID string) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return userID
}
