// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// MemoryStore is an in-memory chat store with the same semantics as the
// DuckDB implementation. Records are copied on the way in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	chats       map[string]*models.Chat       // chat id -> chat
	chatByEvent map[string]string             // event id -> chat id
	members     map[string]*models.Membership // membership id -> membership
	memberByKey map[string]string             // chat id + "/" + user id -> membership id
	messages    map[string]*models.Message
	seq         int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:       make(map[string]*models.Chat),
		chatByEvent: make(map[string]string),
		members:     make(map[string]*models.Membership),
		memberByKey: make(map[string]string),
		messages:    make(map[string]*models.Message),
	}
}

func memberKey(chatID, userID string) string {
	return chatID + "/" + userID
}

func copyChat(c *models.Chat) *models.Chat {
	cp := *c
	return &cp
}

func copyMembership(m *models.Membership) *models.Membership {
	cp := *m
	if m.MutedUntil != nil {
		t := *m.MutedUntil
		cp.MutedUntil = &t
	}
	return &cp
}

func copyMessage(m *models.Message) *models.Message {
	cp := *m
	if m.ReplyToID != nil {
		s := *m.ReplyToID
		cp.ReplyToID = &s
	}
	if m.DeletedBy != nil {
		s := *m.DeletedBy
		cp.DeletedBy = &s
	}
	return &cp
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// GetChatByEvent returns the chat of an event or ErrNotFound.
func (s *MemoryStore) GetChatByEvent(_ context.Context, eventID string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.chatByEvent[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyChat(s.chats[id]), nil
}

// CreateChatIfAbsent stores chat unless the event already has one.
func (s *MemoryStore) CreateChatIfAbsent(_ context.Context, chat *models.Chat) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.chatByEvent[chat.EventID]; ok {
		return copyChat(s.chats[id]), nil
	}
	if _, ok := s.chats[chat.ID]; ok {
		return nil, ErrConflict
	}
	s.chats[chat.ID] = copyChat(chat)
	s.chatByEvent[chat.EventID] = chat.ID
	return copyChat(chat), nil
}

// UpdateChatSettings merges patch onto the chat.
func (s *MemoryStore) UpdateChatSettings(_ context.Context, chatID string, patch models.ChatSettingsPatch, at time.Time) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.SlowMode != nil {
		c.SlowMode = *patch.SlowMode
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	if patch.MembersOnly != nil {
		c.MembersOnly = *patch.MembersOnly
	}
	c.UpdatedAt = at
	return copyChat(c), nil
}

// GetMembership returns a membership or ErrNotFound.
func (s *MemoryStore) GetMembership(_ context.Context, chatID, userID string) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.memberByKey[memberKey(chatID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMembership(s.members[id]), nil
}

// UpsertMembership inserts m or refreshes role and last-seen of the existing row.
func (s *MemoryStore) UpsertMembership(_ context.Context, m *models.Membership) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[m.ChatID]; !ok {
		return nil, ErrConflict
	}
	key := memberKey(m.ChatID, m.UserID)
	if id, ok := s.memberByKey[key]; ok {
		existing := s.members[id]
		existing.Role = m.Role
		existing.LastSeenAt = m.LastSeenAt
		return copyMembership(existing), nil
	}
	stored := copyMembership(m)
	stored.IsMuted = false
	stored.MutedUntil = nil
	s.members[m.ID] = stored
	s.memberByKey[key] = m.ID
	return copyMembership(stored), nil
}

// TouchMembership bumps last-seen.
func (s *MemoryStore) TouchMembership(_ context.Context, chatID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.memberByKey[memberKey(chatID, userID)]
	if !ok {
		return ErrNotFound
	}
	s.members[id].LastSeenAt = at
	return nil
}

// UpdateMembershipRole stores a re-derived role.
func (s *MemoryStore) UpdateMembershipRole(_ context.Context, membershipID string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[membershipID]
	if !ok {
		return ErrNotFound
	}
	m.Role = role
	return nil
}

// SetMute sets or clears the mute state.
func (s *MemoryStore) SetMute(_ context.Context, membershipID string, muted bool, until *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[membershipID]
	if !ok {
		return ErrNotFound
	}
	m.IsMuted = muted
	m.MutedUntil = nil
	if until != nil {
		t := *until
		m.MutedUntil = &t
	}
	return nil
}

func (s *MemoryStore) membersOf(chatID string, seenSince *time.Time) []*models.Membership {
	var out []*models.Membership
	for _, m := range s.members {
		if m.ChatID != chatID {
			continue
		}
		if seenSince != nil && m.LastSeenAt.Before(*seenSince) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// CountMembers counts memberships, optionally only those seen since.
func (s *MemoryStore) CountMembers(_ context.Context, chatID string, seenSince *time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.membersOf(chatID, seenSince)), nil
}

// ListMembers returns memberships ordered by most recently seen.
func (s *MemoryStore) ListMembers(_ context.Context, chatID string, seenSince *time.Time, limit int) ([]models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.membersOf(chatID, seenSince)
	sort.Slice(members, func(i, j int) bool {
		if members[i].LastSeenAt.Equal(members[j].LastSeenAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].LastSeenAt.After(members[j].LastSeenAt)
	})
	if len(members) > limit {
		members = members[:limit]
	}
	out := make([]models.Membership, len(members))
	for i, m := range members {
		out[i] = *copyMembership(m)
	}
	return out, nil
}

// InsertMessage stores m and assigns its sequence number.
func (s *MemoryStore) InsertMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[m.ChatID]; !ok {
		return ErrConflict
	}
	if _, ok := s.messages[m.ID]; ok {
		return ErrConflict
	}
	s.seq++
	m.Seq = s.seq
	s.messages[m.ID] = copyMessage(m)
	return nil
}

// GetMessage returns a message (tombstones included) or ErrNotFound.
func (s *MemoryStore) GetMessage(_ context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(m), nil
}

// GetMessages loads messages by id.
func (s *MemoryStore) GetMessages(_ context.Context, ids []string) (map[string]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Message, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out[id] = copyMessage(m)
		}
	}
	return out, nil
}

// newestFirst returns the chat's messages matching keep, newest first.
func (s *MemoryStore) newestFirst(chatID string, keep func(*models.Message) bool) []*models.Message {
	var out []*models.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Before(out[i]) })
	return out
}

// LatestMessageBySender returns the sender's most recent message or ErrNotFound.
func (s *MemoryStore) LatestMessageBySender(_ context.Context, chatID, senderID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.newestFirst(chatID, func(m *models.Message) bool { return m.SenderID == senderID })
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}
	return copyMessage(msgs[0]), nil
}

// ListMessages returns up to limit non-deleted messages older than before, newest first.
func (s *MemoryStore) ListMessages(_ context.Context, chatID string, before *models.Message, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.newestFirst(chatID, func(m *models.Message) bool {
		return !m.IsDeleted && (before == nil || m.Before(before))
	})
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *copyMessage(m)
	}
	return out, nil
}

// HasMessagesBefore reports whether a non-deleted message older than before exists.
func (s *MemoryStore) HasMessagesBefore(_ context.Context, chatID string, before *models.Message) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.IsDeleted && m.Before(before) {
			return true, nil
		}
	}
	return false, nil
}

// ListPinnedMessages returns pinned, non-deleted messages, newest first.
func (s *MemoryStore) ListPinnedMessages(_ context.Context, chatID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.newestFirst(chatID, func(m *models.Message) bool { return m.IsPinned && !m.IsDeleted })
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *copyMessage(m)
	}
	return out, nil
}

// SetMessagePinned updates the pin flag.
func (s *MemoryStore) SetMessagePinned(_ context.Context, id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.IsPinned = pinned
	return nil
}

// MarkMessageDeleted tombstones a message and clears its pin.
func (s *MemoryStore) MarkMessageDeleted(_ context.Context, id, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	m.IsDeleted = true
	m.IsPinned = false
	m.DeletedBy = &deletedBy
	return nil
}
