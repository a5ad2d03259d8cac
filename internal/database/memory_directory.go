// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package database

import (
	"context"
	"strings"
	"sync"

	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

// MemoryDirectory is an in-memory stand-in for the EventFi core records.
type MemoryDirectory struct {
	mu       sync.RWMutex
	events   map[string]models.EventRef
	team     map[string]models.TeamMember
	tickets  map[string]string // event/user -> status
	profiles map[string]models.Profile
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		events:   make(map[string]models.EventRef),
		team:     make(map[string]models.TeamMember),
		tickets:  make(map[string]string),
		profiles: make(map[string]models.Profile),
	}
}

// PutEvent inserts or replaces an event.
func (d *MemoryDirectory) PutEvent(_ context.Context, e models.EventRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[e.ID] = e
	return nil
}

// PutTeamMember inserts or replaces a team record.
func (d *MemoryDirectory) PutTeamMember(_ context.Context, tm models.TeamMember) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.team[memberKey(tm.EventID, tm.UserID)] = tm
	return nil
}

// PutTicket records a ticket. The id is ignored; one ticket per user and event is tracked.
func (d *MemoryDirectory) PutTicket(_ context.Context, _ string, eventID, userID, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tickets[memberKey(eventID, userID)] = status
	return nil
}

// PutUser inserts or replaces a profile.
func (d *MemoryDirectory) PutUser(_ context.Context, p models.Profile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.UserID] = p
	return nil
}

// GetEvent returns an event or ErrNotFound.
func (d *MemoryDirectory) GetEvent(_ context.Context, eventID string) (*models.EventRef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// GetTeamMember returns a team record or ErrNotFound.
func (d *MemoryDirectory) GetTeamMember(_ context.Context, eventID, userID string) (*models.TeamMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tm, ok := d.team[memberKey(eventID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &tm, nil
}

// HasConfirmedTicket reports whether a confirmed ticket exists.
func (d *MemoryDirectory) HasConfirmedTicket(_ context.Context, eventID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	status := strings.ToUpper(d.tickets[memberKey(eventID, userID)])
	for _, s := range confirmedTicketStatuses {
		if status == s {
			return true, nil
		}
	}
	return false, nil
}

// GetProfiles returns the known profiles among userIDs.
func (d *MemoryDirectory) GetProfiles(_ context.Context, userIDs []string) (map[string]models.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]models.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := d.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
