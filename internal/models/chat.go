// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package models

import "time"

// Role is a member's standing in an event chat.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleOrganizer Role = "organizer"
)

// Rank orders roles for moderation eligibility: member(0) < moderator(1) < organizer(2).
// Unknown roles rank below member.
func (r Role) Rank() int {
	switch r {
	case RoleMember:
		return 0
	case RoleModerator:
		return 1
	case RoleOrganizer:
		return 2
	default:
		return -1
	}
}

// Valid reports whether r is one of the three chat roles.
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// MessageType classifies a chat message.
type MessageType string

const (
	MessageText         MessageType = "text"
	MessageImage        MessageType = "image"
	MessageAnnouncement MessageType = "announcement"
	MessageSystem       MessageType = "system"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageAnnouncement, MessageSystem:
		return true
	}
	return false
}

// Chat is the single messaging channel of an event.
type Chat struct {
	ID          string    `json:"id"`
	EventID     string    `json:"eventId"`
	IsActive    bool      `json:"isActive"`
	SlowMode    int       `json:"slowMode"` // seconds, 0 = disabled
	MembersOnly bool      `json:"membersOnly"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ChatSettingsPatch is a partial settings update; nil fields are left unchanged.
type ChatSettingsPatch struct {
	SlowMode    *int  `json:"slowMode,omitempty"`
	IsActive    *bool `json:"isActive,omitempty"`
	MembersOnly *bool `json:"membersOnly,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ChatSettingsPatch) Empty() bool {
	return p.SlowMode == nil && p.IsActive == nil && p.MembersOnly == nil
}

// Membership is a user's joined relationship to a chat.
type Membership struct {
	ID         string     `json:"id"`
	ChatID     string     `json:"chatId"`
	UserID     string     `json:"userId"`
	Role       Role       `json:"role"`
	IsMuted    bool       `json:"isMuted"`
	MutedUntil *time.Time `json:"mutedUntil,omitempty"`
	JoinedAt   time.Time  `json:"joinedAt"`
	LastSeenAt time.Time  `json:"lastSeenAt"`
}

// MuteActive reports whether the member is muted at now. A mute without an
// expiry lasts until cleared.
func (m *Membership) MuteActive(now time.Time) bool {
	if !m.IsMuted {
		return false
	}
	return m.MutedUntil == nil || m.MutedUntil.After(now)
}

// Message is a chat message. Deleted messages are tombstones: content is
// retained for moderation but hidden from normal reads.
type Message struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chatId"`
	SenderID  string      `json:"senderId"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	ReplyToID *string     `json:"replyToId,omitempty"`
	IsPinned  bool        `json:"isPinned"`
	IsDeleted bool        `json:"isDeleted"`
	DeletedBy *string     `json:"deletedBy,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`

	// Seq breaks ties between messages sharing a timestamp. Assigned by the store.
	Seq int64 `json:"-"`
}

// Before reports whether m sorts strictly before other in chat history.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.Seq < other.Seq
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
