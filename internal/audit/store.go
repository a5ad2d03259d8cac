// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package audit

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements Store in memory. Data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	ids     map[string]struct{}
	maxLen  int
}

// NewMemoryStore creates a store holding at most maxLen entries.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		entries: make([]Entry, 0, maxLen),
		ids:     make(map[string]struct{}, maxLen),
		maxLen:  maxLen,
	}
}

// Save stores entry. Entries with a known ID are ignored.
func (s *MemoryStore) Save(_ context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[entry.ID]; ok {
		return nil
	}

	// drop the oldest 10% when full
	if len(s.entries) >= s.maxLen {
		removeCount := s.maxLen / 10
		if removeCount == 0 {
			removeCount = 1
		}
		for _, e := range s.entries[:removeCount] {
			delete(s.ids, e.ID)
		}
		s.entries = s.entries[removeCount:]
	}

	e := *entry
	e.Detail = copyDetail(entry.Detail)
	s.entries = append(s.entries, e)
	s.ids[e.ID] = struct{}{}
	return nil
}

// Query returns matching entries, newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.limit()
	var results []Entry
	for i := len(s.entries) - 1; i >= 0 && len(results) < limit; i-- {
		e := s.entries[i]
		if !matches(&e, &filter) {
			continue
		}
		e.Detail = copyDetail(e.Detail)
		results = append(results, e)
	}
	return results, nil
}

// Count returns the number of matching entries, ignoring Limit.
func (s *MemoryStore) Count(_ context.Context, filter QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for i := range s.entries {
		if matches(&s.entries[i], &filter) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matches(e *Entry, f *QueryFilter) bool {
	if f.ChatID != "" && e.ChatID != f.ChatID {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Since != nil && e.OccurredAt.Before(*f.Since) {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if e.Action == a {
				return true
			}
		}
		return false
	}
	return true
}

func copyDetail(d map[string]string) map[string]string {
	if d == nil {
		return nil
	}
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
