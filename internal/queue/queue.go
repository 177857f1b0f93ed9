// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package queue

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("processing queue closed")

	// ErrMissingID is returned when an item without a content id is enqueued.
	ErrMissingID = errors.New("queue item has no content id")
)

// Defaults applied to items enqueued without explicit options.
type Defaults struct {
	MaxRetries int
	Timeout    time.Duration
}

// DefaultDefaults returns three retries and a 30 second timeout.
func DefaultDefaults() Defaults {
	return Defaults{MaxRetries: 3, Timeout: 30 * time.Second}
}

// DefaultOptions returns normal priority with the given defaults.
func (d Defaults) DefaultOptions() models.ProcessingOptions {
	return models.ProcessingOptions{Priority: models.PriorityNormal, MaxRetries: d.MaxRetries, Timeout: d.Timeout}
}

type entry struct {
	item models.QueueItem
	seq  uint64
}

// Queue holds at most one pending item per content id.
type Queue struct {
	mu       sync.Mutex
	entries  map[string]*entry
	seq      uint64
	closed   bool
	defaults Defaults
	now      func() time.Time
}

// New creates an empty queue. Zero fields of defaults are filled from
// DefaultDefaults; nil now means time.Now.
func New(defaults Defaults, now func() time.Time) *Queue {
	d := DefaultDefaults()
	if defaults.MaxRetries > 0 {
		d.MaxRetries = defaults.MaxRetries
	}
	if defaults.Timeout > 0 {
		d.Timeout = defaults.Timeout
	}
	if now == nil {
		now = time.Now
	}
	return &Queue{entries: make(map[string]*entry), defaults: d, now: now}
}

// Defaults returns the defaults in effect.
func (q *Queue) Defaults() Defaults {
	return q.defaults
}

// Enqueue adds item, replacing any pending entry for the same content id.
// A non-positive MaxRetries or Timeout takes the queue default.
func (q *Queue) Enqueue(item models.ContentItem, opts models.ProcessingOptions) error {
	if item.ID == "" {
		return ErrMissingID
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = q.defaults.MaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = q.defaults.Timeout
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.seq++
	q.entries[item.ID] = &entry{
		item: models.QueueItem{Item: item, Options: opts, EnqueuedAt: q.now()},
		seq:  q.seq,
	}
	metrics.QueueDepth.Set(float64(len(q.entries)))
	return nil
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Items returns a snapshot of pending items, oldest first.
func (q *Queue) Items() []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	es := q.sorted()
	out := make([]models.QueueItem, len(es))
	for i, e := range es {
		out[i] = e.item
	}
	return out
}

// Close rejects further Enqueue calls and drops pending items.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.entries = make(map[string]*entry)
	metrics.QueueDepth.Set(0)
}

// next picks the item to process: the highest priority item at high or
// above, earliest first on ties; otherwise the oldest item.
func (q *Queue) next() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best, oldest *entry
	for _, e := range q.entries {
		if oldest == nil || e.seq < oldest.seq {
			oldest = e
		}
		if e.item.Options.Priority < models.PriorityHigh {
			continue
		}
		if best == nil ||
			e.item.Options.Priority > best.item.Options.Priority ||
			(e.item.Options.Priority == best.item.Options.Priority && e.seq < best.seq) {
			best = e
		}
	}
	if best == nil {
		best = oldest
	}
	if best == nil {
		return entry{}, false
	}
	return *best, true
}

// complete removes the entry if it has not been replaced meanwhile.
func (q *Queue) complete(e entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cur, ok := q.entries[e.item.Item.ID]; ok && cur.seq == e.seq {
		delete(q.entries, e.item.Item.ID)
	}
	metrics.QueueDepth.Set(float64(len(q.entries)))
}

// fail counts a failed attempt. It reports the new retry count and whether
// the entry was dropped for reaching its retry limit.
func (q *Queue) fail(e entry) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cur, ok := q.entries[e.item.Item.ID]
	if !ok || cur.seq != e.seq {
		return e.item.Retries, false
	}
	cur.item.Retries++
	if cur.item.Retries >= cur.item.Options.MaxRetries {
		delete(q.entries, e.item.Item.ID)
		metrics.QueueDepth.Set(float64(len(q.entries)))
		return cur.item.Retries, true
	}
	return cur.item.Retries, false
}

func (q *Queue) sorted() []*entry {
	es := make([]*entry, 0, len(q.entries))
	for _, e := range q.entries {
		es = append(es, e)
	}
	sort.Slice(es, func(i, j int) bool { return es[i].seq < es[j].seq })
	return es
}
