// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package audit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DuckDBStore)(nil)
)

var auditEpoch = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func sampleEntries() []Entry {
	return []Entry{
		{ID: "n1", EventID: "e1", ChatID: "c1", Action: "message.deleted", ActorID: "mod", TargetUserID: "alice", MessageID: "m1", OccurredAt: auditEpoch},
		{ID: "n2", EventID: "e1", ChatID: "c1", Action: "member.muted", ActorID: "mod", TargetUserID: "bob", Detail: map[string]string{"durationMinutes": "10"}, OccurredAt: auditEpoch.Add(time.Minute)},
		{ID: "n3", EventID: "e1", ChatID: "c1", Action: "settings.updated", ActorID: "org", Detail: map[string]string{"slowMode": "30"}, OccurredAt: auditEpoch.Add(2 * time.Minute)},
		{ID: "n4", EventID: "e2", ChatID: "c2", Action: "message.pinned", ActorID: "org", MessageID: "m9", OccurredAt: auditEpoch.Add(3 * time.Minute)},
	}
}

// runStoreContract exercises behavior every Store must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	for _, e := range sampleEntries() {
		e := e
		if err := store.Save(ctx, &e); err != nil {
			t.Fatalf("Save(%s) error = %v", e.ID, err)
		}
	}
	// redelivery must not duplicate
	dup := sampleEntries()[0]
	if err := store.Save(ctx, &dup); err != nil {
		t.Fatalf("duplicate Save error = %v", err)
	}
	if err := store.Save(ctx, nil); err == nil {
		t.Error("Save(nil) should fail")
	}

	since := auditEpoch.Add(30 * time.Second)
	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"n4", "n3", "n2", "n1"}},
		{"by chat", QueryFilter{ChatID: "c1"}, []string{"n3", "n2", "n1"}},
		{"by actor", QueryFilter{ActorID: "mod"}, []string{"n2", "n1"}},
		{"by actions", QueryFilter{Actions: []string{"member.muted", "message.pinned"}}, []string{"n4", "n2"}},
		{"since", QueryFilter{ChatID: "c1", Since: &since}, []string{"n3", "n2"}},
		{"limit", QueryFilter{Limit: 2}, []string{"n4", "n3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("entry %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	got, err := store.Query(ctx, QueryFilter{Actions: []string{"member.muted"}})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Detail["durationMinutes"] != "10" || got[0].TargetUserID != "bob" || !got[0].OccurredAt.Equal(auditEpoch.Add(time.Minute)) {
		t.Errorf("entry did not round-trip: %+v", got[0])
	}

	n, err := store.Count(ctx, QueryFilter{ChatID: "c1", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore(100))
}

func TestMemoryStore_MaxLen(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		e := Entry{ID: fmt.Sprintf("e%d", i), ChatID: "c", Action: "member.muted", OccurredAt: auditEpoch.Add(time.Duration(i) * time.Second)}
		if err := store.Save(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}
	if store.Len() > 10 {
		t.Errorf("Len() = %d exceeds max", store.Len())
	}
	got, err := store.Query(ctx, QueryFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].ID != "e14" {
		t.Errorf("newest entry = %s, want e14", got[0].ID)
	}

	// an evicted id can be recorded again
	old := Entry{ID: "e0", ChatID: "c", Action: "member.muted", OccurredAt: auditEpoch}
	if err := store.Save(ctx, &old); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(ctx, QueryFilter{}); n != int64(store.Len()) {
		t.Errorf("Count() = %d, Len() = %d", n, store.Len())
	}
}

func TestMemoryStore_CopiesDetail(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	e := Entry{ID: "x", ChatID: "c", Detail: map[string]string{"k": "v"}}
	if err := store.Save(ctx, &e); err != nil {
		t.Fatal(err)
	}
	e.Detail["k"] = "mutated"

	got, _ := store.Query(ctx, QueryFilter{})
	if got[0].Detail["k"] != "v" {
		t.Error("stored entry shares the caller's map")
	}
}
