// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/minbar/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recordingSink) PublishChange(_ context.Context, ev models.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func seededSource(t *testing.T) *MemorySource {
	t.Helper()
	src := NewMemorySource()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := src.Seed(EntityContent,
		models.ContentItem{ID: "c1", DisplayID: "d1", Title: "Eid", Kind: models.KindText, CreatedAt: created},
		models.ContentItem{ID: "c2", DisplayID: "d1", Title: "Iftar", Kind: models.KindText, CreatedAt: created.Add(time.Hour)},
		models.ContentItem{ID: "c3", DisplayID: "d1", Title: "Class", Kind: models.KindText, CreatedAt: created.Add(2 * time.Hour)},
		models.ContentItem{ID: "c4", DisplayID: "d2", Title: "Other", Kind: models.KindText, CreatedAt: created},
	)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return src
}

func ids(t *testing.T, rows []Record) []string {
	t.Helper()
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			t.Fatalf("decode row: %v", err)
		}
		out = append(out, head.ID)
	}
	return out
}

func TestMemorySource_GetByID(t *testing.T) {
	src := seededSource(t)
	ctx := context.Background()

	rec, err := src.GetByID(ctx, EntityContent, "c2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got := ids(t, []Record{rec}); got[0] != "c2" {
		t.Errorf("GetByID() id = %s, want c2", got[0])
	}

	if _, err := src.GetByID(ctx, EntityContent, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
	if src.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", src.Calls())
	}
}

func TestMemorySource_List(t *testing.T) {
	src := seededSource(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "filter by display",
			query: Query{Filters: map[string]string{"display_id": "d1"}},
			want:  []string{"c1", "c2", "c3"},
		},
		{
			name: "newest first",
			query: Query{
				Filters: map[string]string{"display_id": "d1"},
				Order:   &Order{Column: "created_at", Descending: true},
			},
			want: []string{"c3", "c2", "c1"},
		},
		{
			name: "second page",
			query: Query{
				Filters: map[string]string{"display_id": "d1"},
				Order:   &Order{Column: "created_at", Descending: true},
				Range:   &Range{From: 2, To: 3},
			},
			want: []string{"c1"},
		},
		{
			name:  "range past end",
			query: Query{Range: &Range{From: 10, To: 19}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := src.List(ctx, EntityContent, tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			got := ids(t, rows)
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("List()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMemorySource_UpsertEmitsChanges(t *testing.T) {
	src := seededSource(t)
	sink := &recordingSink{}
	src.SetChangeSink(sink)
	ctx := context.Background()

	if _, err := src.Upsert(ctx, EntityContent, Record(`{"id":"c1","display_id":"d1","title":"Eid Mubarak"}`)); err != nil {
		t.Fatalf("Upsert(existing) error = %v", err)
	}
	if _, err := src.Upsert(ctx, EntityContent, Record(`{"id":"c9","display_id":"d1","title":"New"}`)); err != nil {
		t.Fatalf("Upsert(new) error = %v", err)
	}
	if _, err := src.Upsert(ctx, EntityContent, Record(`{"title":"no id"}`)); err == nil {
		t.Error("Upsert(no id) expected error")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 {
		t.Fatalf("events = %d, want 2", len(sink.events))
	}
	if sink.events[0].Type != models.ChangeUpdate || sink.events[0].RecordID != "c1" {
		t.Errorf("first event = %+v, want UPDATE c1", sink.events[0])
	}
	if sink.events[1].Type != models.ChangeInsert || sink.events[1].DisplayID != "d1" {
		t.Errorf("second event = %+v, want INSERT for d1", sink.events[1])
	}
}

func TestMemorySource_PrayerTimesKey(t *testing.T) {
	src := NewMemorySource()
	ctx := context.Background()
	row := Record(`{"display_id":"d1","date":"2026-03-06","fajr":"2026-03-06T05:10:00Z"}`)
	if _, err := src.Upsert(ctx, EntityPrayerTimes, row); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	rows, err := src.List(ctx, EntityPrayerTimes, Query{Filters: map[string]string{"display_id": "d1", "date": "2026-03-06"}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("List() = %d rows, want 1", len(rows))
	}
}

func TestMemorySource_FailureAndLatency(t *testing.T) {
	src := seededSource(t)
	boom := errors.New("connection refused")
	src.SetFailure(boom)

	_, err := src.List(context.Background(), EntityContent, Query{})
	if !errors.Is(err, ErrRemote) || !errors.Is(err, boom) {
		t.Errorf("List() error = %v, want ErrRemote wrapping cause", err)
	}

	src.SetFailure(nil)
	src.SetLatency(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := src.GetByID(ctx, EntityContent, "c1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetByID() error = %v, want deadline exceeded", err)
	}
}

func TestMemorySource_SeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	doc := `{
		"displays": [{"id": "d1", "name": "Main hall", "timezone": "UTC"}],
		"display_content": [{"id": "c1", "display_id": "d1", "title": "Eid", "type": "text"}]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	src := NewMemorySource()
	if err := src.SeedFile(path); err != nil {
		t.Fatalf("SeedFile() error = %v", err)
	}
	for _, tc := range []struct{ entity, id string }{
		{EntityDisplays, "d1"},
		{EntityContent, "c1"},
	} {
		if _, err := src.GetByID(context.Background(), tc.entity, tc.id); err != nil {
			t.Errorf("GetByID(%s, %s) error = %v", tc.entity, tc.id, err)
		}
	}

	if err := src.SeedFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("SeedFile(missing) should fail")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := src.SeedFile(bad); err == nil {
		t.Error("SeedFile(malformed) should fail")
	}
}
