// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
)

// DuckDBStore implements Store on the chat database.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed store. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the chat_audit table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat_audit (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			target_user_id TEXT,
			message_id TEXT,
			detail JSON,
			occurred_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_audit_chat ON chat_audit(chat_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_audit_actor ON chat_audit(actor_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	logging.Info().Msg("Chat audit table created/verified")
	return nil
}

// Save inserts entry. A duplicate ID is ignored.
func (s *DuckDBStore) Save(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	detail, err := marshalDetail(entry.Detail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_audit (id, event_id, chat_id, action, actor_id, target_user_id, message_id, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.EventID, entry.ChatID, entry.Action, entry.ActorID,
		nullable(entry.TargetUserID), nullable(entry.MessageID), detail, entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	return nil
}

// Query returns matching entries, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	where, args := buildFilterConditions(filter)
	query := `
		SELECT id, event_id, chat_id, action, actor_id, target_user_id, message_id,
			CAST(detail AS VARCHAR) AS detail, occurred_at
		FROM chat_audit` + where + fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT %d", filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			target, messageID sql.NullString
			detail            sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.ChatID, &e.Action, &e.ActorID, &target, &messageID, &detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.TargetUserID = target.String
		e.MessageID = messageID.String
		if detail.Valid && detail.String != "" {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				logging.Warn().Err(err).Str("audit_id", e.ID).Msg("Failed to decode audit detail")
			}
		}
		e.OccurredAt = e.OccurredAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of matching entries, ignoring Limit.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildFilterConditions(filter)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_audit"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

// buildSliceCondition creates a SQL IN condition for a slice of string values.
func buildSliceCondition[T ~string](column string, values []T, args *[]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, string(v))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

func buildFilterConditions(filter QueryFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ChatID != "" {
		conditions = append(conditions, "chat_id = ?")
		args = append(args, filter.ChatID)
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if cond := buildSliceCondition("action", filter.Actions, &args); cond != "" {
		conditions = append(conditions, cond)
	}
	if filter.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func marshalDetail(d map[string]string) (*string, error) {
	if len(d) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal audit detail: %w", err)
	}
	s := string(b)
	return &s, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
