// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/minbar/internal/models"
)

// ChangeSink receives change events emitted by a source.
type ChangeSink interface {
	PublishChange(ctx context.Context, ev models.ChangeEvent) error
}

// MemorySource is an in-process DataSource used by offline kiosks, demos
// and tests. Records are keyed by their "id" column; prayer_times rows
// without an id are keyed by display_id and date.
type MemorySource struct {
	mu      sync.RWMutex
	rows    map[string]map[string]Record
	failure error
	latency time.Duration
	sink    ChangeSink
	calls   atomic.Int64
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{rows: make(map[string]map[string]Record)}
}

// SetChangeSink makes Upsert publish change events.
func (m *MemorySource) SetChangeSink(sink ChangeSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// SetFailure makes every call fail with err until cleared with nil.
func (m *MemorySource) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// SetLatency delays every call by d.
func (m *MemorySource) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Calls returns how many remote calls have been made.
func (m *MemorySource) Calls() int64 {
	return m.calls.Load()
}

// Seed stores rows without emitting change events.
func (m *MemorySource) Seed(entity string, rows ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode seed row: %w", err)
		}
		if _, _, err := m.put(entity, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemorySource) begin(ctx context.Context) error {
	m.calls.Add(1)
	m.mu.RLock()
	latency, failure := m.latency, m.failure
	m.mu.RUnlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if failure != nil {
		return fmt.Errorf("%w: %w", ErrRemote, failure)
	}
	return nil
}

// GetByID returns the row with the given id.
func (m *MemorySource) GetByID(ctx context.Context, entity, id string) (Record, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[entity][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append(Record(nil), rec...), nil
}

// List returns rows matching q.
func (m *MemorySource) List(ctx context.Context, entity string, q Query) ([]Record, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type row struct {
		rec    Record
		fields map[string]any
	}
	var matched []row
	for _, rec := range m.rows[entity] {
		var fields map[string]any
		if err := json.Unmarshal(rec, &fields); err != nil {
			continue
		}
		if matchesFilters(fields, q.Filters) {
			matched = append(matched, row{rec: rec, fields: fields})
		}
	}

	sortColumn, desc := "id", false
	if q.Order != nil {
		sortColumn, desc = q.Order.Column, q.Order.Descending
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := fmt.Sprint(matched[i].fields[sortColumn]), fmt.Sprint(matched[j].fields[sortColumn])
		if a == b {
			return fmt.Sprint(matched[i].fields["id"]) < fmt.Sprint(matched[j].fields["id"])
		}
		if desc {
			return a > b
		}
		return a < b
	})

	if q.Range != nil {
		from, to := q.Range.From, q.Range.To+1
		if from >= len(matched) {
			return []Record{}, nil
		}
		if to > len(matched) {
			to = len(matched)
		}
		matched = matched[from:to]
	}

	out := make([]Record, len(matched))
	for i, r := range matched {
		out[i] = append(Record(nil), r.rec...)
	}
	return out, nil
}

// Upsert stores rec and emits a change event when a sink is configured.
func (m *MemorySource) Upsert(ctx context.Context, entity string, rec Record) (Record, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	id, existed, err := m.put(entity, rec)
	sink := m.sink
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if sink != nil {
		ev := models.ChangeEvent{
			EventID:   uuid.NewString(),
			Type:      models.ChangeInsert,
			Entity:    entity,
			RecordID:  id,
			DisplayID: displayIDOf(rec, entity, id),
			Record:    append([]byte(nil), rec...),
			Timestamp: time.Now().UTC(),
		}
		if existed {
			ev.Type = models.ChangeUpdate
		}
		if err := sink.PublishChange(ctx, ev); err != nil {
			return nil, fmt.Errorf("publish change: %w", err)
		}
	}
	return append(Record(nil), rec...), nil
}

// put must be called with mu held.
func (m *MemorySource) put(entity string, rec Record) (string, bool, error) {
	var fields map[string]any
	if err := json.Unmarshal(rec, &fields); err != nil {
		return "", false, fmt.Errorf("decode %s record: %w", entity, err)
	}
	id := rowKey(entity, fields)
	if id == "" {
		return "", false, fmt.Errorf("%s record has no id", entity)
	}
	if m.rows[entity] == nil {
		m.rows[entity] = make(map[string]Record)
	}
	_, existed := m.rows[entity][id]
	m.rows[entity][id] = append(Record(nil), rec...)
	return id, existed, nil
}

func rowKey(entity string, fields map[string]any) string {
	if id, ok := fields["id"].(string); ok && id != "" {
		return id
	}
	if entity == EntityPrayerTimes {
		d, _ := fields["display_id"].(string)
		date, _ := fields["date"].(string)
		if d != "" && date != "" {
			return d + ":" + date
		}
	}
	return ""
}

func displayIDOf(rec Record, entity, id string) string {
	if entity == EntityDisplays {
		return id
	}
	var head struct {
		DisplayID string `json:"display_id"`
	}
	_ = json.Unmarshal(rec, &head)
	return head.DisplayID
}

func matchesFilters(fields map[string]any, filters map[string]string) bool {
	for col, want := range filters {
		v, ok := fields[col]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

// SeedFile loads rows from a JSON document keyed by entity:
//
//	{"displays": [...], "display_content": [...], "prayer_times": [...]}
func (m *MemorySource) SeedFile(path string) error {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var doc map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode seed file %s: %w", path, err)
	}
	entities := make([]string, 0, len(doc))
	for entity := range doc {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	for _, entity := range entities {
		rows := make([]any, len(doc[entity]))
		for i, r := range doc[entity] {
			rows[i] = r
		}
		if err := m.Seed(entity, rows...); err != nil {
			return fmt.Errorf("seed %s: %w", entity, err)
		}
	}
	return nil
}
