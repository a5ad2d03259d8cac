// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package database

import (
	"context"
	"fmt"
	"strings"
)

// directorySchema mirrors the tables owned by the EventFi core service. They
// are created here only when the chat service runs against its own database.
const directorySchema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		avatar TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		organizer_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		end_date TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_team_members (
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (event_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tickets_event_user ON tickets(event_id, user_id)
`

const chatSchema = `
	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE REFERENCES events(id),
		is_active BOOLEAN NOT NULL DEFAULT true,
		slow_mode INTEGER NOT NULL DEFAULT 0,
		members_only BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chat_memberships (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL REFERENCES chats(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		role TEXT NOT NULL,
		is_muted BOOLEAN NOT NULL DEFAULT false,
		muted_until TIMESTAMP,
		joined_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		UNIQUE (chat_id, user_id)
	);

	CREATE SEQUENCE IF NOT EXISTS chat_message_seq START 1;

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		seq BIGINT NOT NULL DEFAULT nextval('chat_message_seq'),
		chat_id TEXT NOT NULL REFERENCES chats(id),
		sender_id TEXT NOT NULL REFERENCES users(id),
		content TEXT NOT NULL,
		type TEXT NOT NULL,
		reply_to_id TEXT,
		is_pinned BOOLEAN NOT NULL DEFAULT false,
		is_deleted BOOLEAN NOT NULL DEFAULT false,
		deleted_by TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_chat_time ON chat_messages(chat_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_sender ON chat_messages(chat_id, sender_id)
`

func (db *DB) createSchema(ctx context.Context) error {
	for _, schema := range []string{directorySchema, chatSchema} {
		for _, stmt := range strings.Split(schema, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute schema statement: %w", err)
			}
		}
	}
	return nil
}
