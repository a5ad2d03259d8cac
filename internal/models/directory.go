// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package models

import "time"

// Records owned by the surrounding EventFi services. The chat core reads
// them but never writes them.

// EventRef is the part of an event the chat needs for lifecycle and role checks.
type EventRef struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizerId"`
	Title       string    `json:"title"`
	EndDate     time.Time `json:"endDate"`
}

// TeamMember is a user's membership of an event's organizing team.
type TeamMember struct {
	EventID string `json:"eventId"`
	UserID  string `json:"userId"`
	Role    string `json:"role"`   // e.g. CO_HOST, MANAGER, SCANNER, VOLUNTEER
	Status  string `json:"status"` // ACTIVE, PENDING, REMOVED
}

// Profile is the public display information of a user.
type Profile struct {
	UserID      string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}
