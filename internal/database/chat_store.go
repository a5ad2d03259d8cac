// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

const chatColumns = "id, event_id, is_active, slow_mode, members_only, created_at, updated_at"

func scanChat(row interface{ Scan(...interface{}) error }) (*models.Chat, error) {
	var c models.Chat
	if err := row.Scan(&c.ID, &c.EventID, &c.IsActive, &c.SlowMode, &c.MembersOnly, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetChatByEvent returns the chat of an event or ErrNotFound.
func (db *DB) GetChatByEvent(ctx context.Context, eventID string) (*models.Chat, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+chatColumns+" FROM chats WHERE event_id = ?", eventID)
	c, err := scanChat(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get chat for event %s: %w", eventID, err)
	}
	return c, err
}

// CreateChatIfAbsent inserts chat unless the event already has one and
// returns the stored row. Concurrent callers observe the same chat.
func (db *DB) CreateChatIfAbsent(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`,
		chat.ID, chat.EventID, chat.IsActive, chat.SlowMode, chat.MembersOnly,
		chat.CreatedAt.UTC(), chat.UpdatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("create chat for event %s: %w", chat.EventID, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return db.GetChatByEvent(ctx, chat.EventID)
}

// UpdateChatSettings merges patch onto the chat and returns the new row.
func (db *DB) UpdateChatSettings(ctx context.Context, chatID string, patch models.ChatSettingsPatch, at time.Time) (*models.Chat, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{at.UTC()}
	if patch.SlowMode != nil {
		sets = append(sets, "slow_mode = ?")
		args = append(args, *patch.SlowMode)
	}
	if patch.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.IsActive)
	}
	if patch.MembersOnly != nil {
		sets = append(sets, "members_only = ?")
		args = append(args, *patch.MembersOnly)
	}
	args = append(args, chatID)

	var affected int64
	err := withConflictRetry(ctx, func() error {
		res, err := db.conn.ExecContext(ctx, "UPDATE chats SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update chat settings: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return scanChat(db.conn.QueryRowContext(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = ?", chatID))
}

const membershipColumns = "id, chat_id, user_id, role, is_muted, muted_until, joined_at, last_seen_at"

func scanMembership(row interface{ Scan(...interface{}) error }) (*models.Membership, error) {
	var (
		m          models.Membership
		role       string
		mutedUntil sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.ChatID, &m.UserID, &role, &m.IsMuted, &mutedUntil, &m.JoinedAt, &m.LastSeenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Role = models.Role(role)
	if mutedUntil.Valid {
		t := mutedUntil.Time
		m.MutedUntil = &t
	}
	return &m, nil
}

// GetMembership returns the membership of userID in chatID or ErrNotFound.
func (db *DB) GetMembership(ctx context.Context, chatID, userID string) (*models.Membership, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM chat_memberships WHERE chat_id = ? AND user_id = ?", chatID, userID)
	m, err := scanMembership(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, err
}

// UpsertMembership creates the membership or, when (chat, user) already
// exists, refreshes its role and last-seen time. The stored row is returned;
// the id of an existing membership never changes.
func (db *DB) UpsertMembership(ctx context.Context, m *models.Membership) (*models.Membership, error) {
	err := withConflictRetry(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO chat_memberships (`+membershipColumns+`)
			VALUES (?, ?, ?, ?, false, NULL, ?, ?)
			ON CONFLICT (chat_id, user_id) DO UPDATE SET
				role = excluded.role,
				last_seen_at = excluded.last_seen_at`,
			m.ID, m.ChatID, m.UserID, string(m.Role), m.JoinedAt.UTC(), m.LastSeenAt.UTC())
		return err
	})
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("upsert membership: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to upsert membership: %w", err)
	}
	return db.GetMembership(ctx, m.ChatID, m.UserID)
}

// TouchMembership bumps last-seen. Returns ErrNotFound when the user never joined.
func (db *DB) TouchMembership(ctx context.Context, chatID, userID string, at time.Time) error {
	return db.execOne(ctx, "touch membership",
		"UPDATE chat_memberships SET last_seen_at = ? WHERE chat_id = ? AND user_id = ?",
		at.UTC(), chatID, userID)
}

// UpdateMembershipRole stores a re-derived role.
func (db *DB) UpdateMembershipRole(ctx context.Context, membershipID string, role models.Role) error {
	return db.execOne(ctx, "update membership role",
		"UPDATE chat_memberships SET role = ? WHERE id = ?", string(role), membershipID)
}

// SetMute sets or clears the mute state of a membership.
func (db *DB) SetMute(ctx context.Context, membershipID string, muted bool, until *time.Time) error {
	var untilArg interface{}
	if until != nil {
		untilArg = until.UTC()
	}
	return db.execOne(ctx, "set mute",
		"UPDATE chat_memberships SET is_muted = ?, muted_until = ? WHERE id = ?", muted, untilArg, membershipID)
}

// CountMembers counts memberships of a chat, optionally only those seen since.
func (db *DB) CountMembers(ctx context.Context, chatID string, seenSince *time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM chat_memberships WHERE chat_id = ?"
	args := []interface{}{chatID}
	if seenSince != nil {
		query += " AND last_seen_at >= ?"
		args = append(args, seenSince.UTC())
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return n, nil
}

// ListMembers returns memberships ordered by most recently seen.
func (db *DB) ListMembers(ctx context.Context, chatID string, seenSince *time.Time, limit int) ([]models.Membership, error) {
	query := "SELECT " + membershipColumns + " FROM chat_memberships WHERE chat_id = ?"
	args := []interface{}{chatID}
	if seenSince != nil {
		query += " AND last_seen_at >= ?"
		args = append(args, seenSince.UTC())
	}
	query += " ORDER BY last_seen_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

const messageColumns = "id, seq, chat_id, sender_id, content, type, reply_to_id, is_pinned, is_deleted, deleted_by, created_at"

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.Message, error) {
	var (
		m         models.Message
		msgType   string
		replyTo   sql.NullString
		deletedBy sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Seq, &m.ChatID, &m.SenderID, &m.Content, &msgType,
		&replyTo, &m.IsPinned, &m.IsDeleted, &deletedBy, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Type = models.MessageType(msgType)
	if replyTo.Valid {
		m.ReplyToID = &replyTo.String
	}
	if deletedBy.Valid {
		m.DeletedBy = &deletedBy.String
	}
	return &m, nil
}

func (db *DB) queryMessages(ctx context.Context, query string, args ...interface{}) ([]models.Message, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// InsertMessage persists m and assigns its sequence number.
func (db *DB) InsertMessage(ctx context.Context, m *models.Message) error {
	var replyTo interface{}
	if m.ReplyToID != nil {
		replyTo = *m.ReplyToID
	}
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, sender_id, content, type, reply_to_id, is_pinned, is_deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, false, false, ?)
		RETURNING seq`,
		m.ID, m.ChatID, m.SenderID, m.Content, string(m.Type), replyTo, m.CreatedAt.UTC()).Scan(&m.Seq)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("insert message: %w", ErrConflict)
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// GetMessage returns a message (including tombstones) or ErrNotFound.
func (db *DB) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(db.conn.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM chat_messages WHERE id = ?", id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, err
}

// GetMessages loads messages by id. Missing ids are absent from the result.
func (db *DB) GetMessages(ctx context.Context, ids []string) (map[string]*models.Message, error) {
	out := make(map[string]*models.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	msgs, err := db.queryMessages(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		out[msgs[i].ID] = &msgs[i]
	}
	return out, nil
}

// LatestMessageBySender returns the sender's most recent message in the chat,
// tombstones included, or ErrNotFound.
func (db *DB) LatestMessageBySender(ctx context.Context, chatID, senderID string) (*models.Message, error) {
	m, err := scanMessage(db.conn.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE chat_id = ? AND sender_id = ? ORDER BY created_at DESC, seq DESC LIMIT 1",
		chatID, senderID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return m, err
}

// ListMessages returns up to limit non-deleted messages strictly older than
// before (all messages when before is nil), newest first.
func (db *DB) ListMessages(ctx context.Context, chatID string, before *models.Message, limit int) ([]models.Message, error) {
	query := "SELECT " + messageColumns + " FROM chat_messages WHERE chat_id = ? AND NOT is_deleted"
	args := []interface{}{chatID}
	if before != nil {
		query += " AND (created_at < ? OR (created_at = ? AND seq < ?))"
		args = append(args, before.CreatedAt.UTC(), before.CreatedAt.UTC(), before.Seq)
	}
	query += " ORDER BY created_at DESC, seq DESC LIMIT ?"
	args = append(args, limit)
	return db.queryMessages(ctx, query, args...)
}

// HasMessagesBefore reports whether a non-deleted message older than before exists.
func (db *DB) HasMessagesBefore(ctx context.Context, chatID string, before *models.Message) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_messages
			WHERE chat_id = ? AND NOT is_deleted
			  AND (created_at < ? OR (created_at = ? AND seq < ?))
		)`, chatID, before.CreatedAt.UTC(), before.CreatedAt.UTC(), before.Seq).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check older messages: %w", err)
	}
	return exists, nil
}

// ListPinnedMessages returns pinned, non-deleted messages, newest first.
func (db *DB) ListPinnedMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	return db.queryMessages(ctx,
		"SELECT "+messageColumns+" FROM chat_messages WHERE chat_id = ? AND is_pinned AND NOT is_deleted ORDER BY created_at DESC, seq DESC",
		chatID)
}

// SetMessagePinned updates the pin flag.
func (db *DB) SetMessagePinned(ctx context.Context, id string, pinned bool) error {
	return db.execOne(ctx, "set message pinned", "UPDATE chat_messages SET is_pinned = ? WHERE id = ?", pinned, id)
}

// MarkMessageDeleted tombstones a message. Pins are cleared with it.
func (db *DB) MarkMessageDeleted(ctx context.Context, id, deletedBy string) error {
	return db.execOne(ctx, "delete message",
		"UPDATE chat_messages SET is_deleted = true, is_pinned = false, deleted_by = ? WHERE id = ?", deletedBy, id)
}

// execOne runs an UPDATE expected to touch exactly one row.
func (db *DB) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	var affected int64
	err := withConflictRetry(ctx, func() error {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
