// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

// Package directory fronts the lookups the chat makes against records owned
// by other EventFi services (events, team, tickets, users).
//
// Events and profiles change rarely and are read on every request, so they
// are cached. Team membership and tickets are always read through: a
// promotion or a fresh ticket must take effect on the next request.
package directory

import (
	"context"
	"fmt"

	"github.com/DevEmmy/eventfi-backend-v2/internal/cache"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
	"github.com/DevEmmy/eventfi-backend-v2/internal/models"
)

const (
	cacheTypeEvent   = "event"
	cacheTypeProfile = "profile"

	eventCacheSize   = 4096
	profileCacheSize = 50000
)

// Source is the uncached lookup backend.
type Source interface {
	GetEvent(ctx context.Context, eventID string) (*models.EventRef, error)
	GetTeamMember(ctx context.Context, eventID, userID string) (*models.TeamMember, error)
	HasConfirmedTicket(ctx context.Context, eventID, userID string) (bool, error)
	GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error)
}

// Cached wraps a Source with event and profile caches.
type Cached struct {
	src      Source
	events   *cache.LRU[string, models.EventRef]
	profiles *cache.LRU[string, models.Profile]
}

// NewCached wraps src using the TTLs from cfg.
func NewCached(src Source, cfg config.DirectoryConfig) *Cached {
	return &Cached{
		src:      src,
		events:   cache.NewLRU[string, models.EventRef](eventCacheSize, cfg.EventCacheTTL),
		profiles: cache.NewLRU[string, models.Profile](profileCacheSize, cfg.ProfileCacheTTL),
	}
}

// GetEvent returns the event, from cache when fresh. Missing events are not
// cached.
func (c *Cached) GetEvent(ctx context.Context, eventID string) (*models.EventRef, error) {
	if e, ok := c.events.Get(eventID); ok {
		metrics.RecordCacheLookup(cacheTypeEvent, true)
		return &e, nil
	}
	metrics.RecordCacheLookup(cacheTypeEvent, false)

	e, err := c.src.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c.events.Add(eventID, *e)
	return e, nil
}

// GetTeamMember always reads through.
func (c *Cached) GetTeamMember(ctx context.Context, eventID, userID string) (*models.TeamMember, error) {
	return c.src.GetTeamMember(ctx, eventID, userID)
}

// HasConfirmedTicket always reads through.
func (c *Cached) HasConfirmedTicket(ctx context.Context, eventID, userID string) (bool, error) {
	return c.src.HasConfirmedTicket(ctx, eventID, userID)
}

// GetProfiles serves what it can from cache and fetches the rest in one
// batch. Users without a profile are simply absent from the result.
func (c *Cached) GetProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(userIDs))
	var missing []string
	for _, id := range userIDs {
		if p, ok := c.profiles.Get(id); ok {
			out[id] = p
			continue
		}
		missing = append(missing, id)
	}
	metrics.RecordCacheLookups(cacheTypeProfile, len(userIDs)-len(missing), len(missing))
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.src.GetProfiles(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for id, p := range loaded {
		c.profiles.Add(id, p)
		out[id] = p
	}
	return out, nil
}
