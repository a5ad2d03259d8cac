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

	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// Ticket statuses that prove a confirmed purchase.
var confirmedTicketStatuses = []string{"CONFIRMED", "CHECKED_IN"}

// GetEvent returns the lifecycle-relevant fields of an event or ErrNotFound.
func (db *DB) GetEvent(ctx context.Context, eventID string) (*models.EventRef, error) {
	var e models.EventRef
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, organizer_id, title, end_date FROM events WHERE id = ?", eventID).
		Scan(&e.ID, &e.OrganizerID, &e.Title, &e.EndDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}
	return &e, nil
}

// GetTeamMember returns the user's team record for the event or ErrNotFound.
func (db *DB) GetTeamMember(ctx context.Context, eventID, userID string) (*models.TeamMember, error) {
	tm := models.TeamMember{EventID: eventID, UserID: userID}
	err := db.conn.QueryRowContext(ctx,
		"SELECT role, status FROM event_team_members WHERE event_id = ? AND user_id = ?", eventID, userID).
		Scan(&tm.Role, &tm.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	return &tm, nil
}

// HasConfirmedTicket reports whether the user holds a confirmed ticket for the event.
func (db *DB) HasConfirmedTicket(ctx context.Context, eventID, userID string) (bool, error) {
	args := []interface{}{eventID, userID}
	placeholders := make([]string, len(confirmedTicketStatuses))
	for i, s := range confirmedTicketStatuses {
		placeholders[i] = "?"
		args = append(args, s)
	}
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM tickets WHERE event_id = ? AND user_id = ? AND upper(status) IN ("+
			strings.Join(placeholders, ",")+"))", args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket: %w", err)
	}
	return exists, nil
}

// GetProfiles loads display profiles for the given users. Unknown users are
// absent from the result.
func (db *DB) GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, display_name, COALESCE(avatar, '') FROM users WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Avatar); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

// The writers below exist for local development seeding and integration
// tests; in production these tables belong to the EventFi core service.

// PutUser inserts or replaces a user profile.
func (db *DB) PutUser(ctx context.Context, p models.Profile) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, display_name, avatar) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, avatar = excluded.avatar`,
		p.UserID, p.DisplayName, p.Avatar)
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// PutEvent inserts or replaces an event.
func (db *DB) PutEvent(ctx context.Context, e models.EventRef) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO events (id, organizer_id, title, end_date) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title, end_date = excluded.end_date`,
		e.ID, e.OrganizerID, e.Title, e.EndDate.UTC())
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	return nil
}

// PutTeamMember inserts or replaces a team record.
func (db *DB) PutTeamMember(ctx context.Context, tm models.TeamMember) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO event_team_members (event_id, user_id, role, status) VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id, user_id) DO UPDATE SET role = excluded.role, status = excluded.status`,
		tm.EventID, tm.UserID, tm.Role, tm.Status)
	if err != nil {
		return fmt.Errorf("failed to put team member: %w", err)
	}
	return nil
}

// PutTicket records a ticket.
func (db *DB) PutTicket(ctx context.Context, id, eventID, userID, status string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tickets (id, event_id, user_id, status) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET status = excluded.status`,
		id, eventID, userID, status)
	if err != nil {
		return fmt.Errorf("failed to put ticket: %w", err)
	}
	return nil
}
