// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package cache

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/metrics"
)

// NamespaceConfig configures one namespace.
type NamespaceConfig struct {
	Name       string
	TTL        time.Duration
	MaxEntries int
	Persistent bool
}

// Entry is a cached value with its bookkeeping timestamps.
type Entry[T any] struct {
	Key        string
	Value      T
	Timestamp  time.Time
	ExpiresAt  time.Time
	LastAccess time.Time

	prev *Entry[T]
	next *Entry[T]
}

// Stats describes a namespace at a point in time. HitRate is always 0:
// hits and misses are not counted.
type Stats struct {
	Name        string    `json:"name"`
	Size        int       `json:"size"`
	MaxEntries  int       `json:"max_entries"`
	OldestEntry time.Time `json:"oldest_entry,omitempty"`
	NewestEntry time.Time `json:"newest_entry,omitempty"`
	HitRate     float64   `json:"hit_rate"`
}

type options struct {
	persister Persister
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Namespace.
type Option func(*options)

// WithPersister sets the durable store used by persistent namespaces.
func WithPersister(p Persister) Option {
	return func(o *options) { o.persister = p }
}

// WithLogger sets the logger used for persistence failures.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Namespace is a bounded TTL cache with least-recently-accessed eviction.
//
// Entries are kept on a doubly linked list ordered by access: head.next is
// the most recently accessed entry and tail.prev the least. Expired entries
// are never returned and are removed when touched or on PurgeExpired.
type Namespace[T any] struct {
	mu sync.Mutex

	cfg       NamespaceConfig
	items     map[string]*Entry[T]
	head      *Entry[T]
	tail      *Entry[T]
	persister Persister
	logger    zerolog.Logger
	now       func() time.Time
}

// NewNamespace creates a namespace. When cfg.Persistent is set and a
// persister is supplied, previously persisted unexpired entries are loaded.
func NewNamespace[T any](cfg NamespaceConfig, opts ...Option) *Namespace[T] {
	o := options{logger: logging.WithComponent("cache"), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1
	}

	n := &Namespace[T]{
		cfg:    cfg,
		items:  make(map[string]*Entry[T], cfg.MaxEntries),
		head:   &Entry[T]{},
		tail:   &Entry[T]{},
		logger: o.logger.With().Str("namespace", cfg.Name).Logger(),
		now:    o.now,
	}
	n.head.next = n.tail
	n.tail.prev = n.head

	if cfg.Persistent {
		n.persister = o.persister
	}
	if n.persister != nil {
		n.load()
	}
	return n
}

// Name returns the namespace name.
func (n *Namespace[T]) Name() string {
	return n.cfg.Name
}

// Set inserts or overwrites key. Inserting a new key into a full namespace
// evicts exactly the least recently accessed entry first.
func (n *Namespace[T]) Set(key string, value T) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if e, ok := n.items[key]; ok {
		e.Value = value
		e.Timestamp = now
		e.ExpiresAt = now.Add(n.cfg.TTL)
		e.LastAccess = now
		n.moveToFront(e)
	} else {
		if len(n.items) >= n.cfg.MaxEntries {
			n.evictOldest()
		}
		e := &Entry[T]{Key: key, Value: value, Timestamp: now, ExpiresAt: now.Add(n.cfg.TTL), LastAccess: now}
		n.addToFront(e)
		n.items[key] = e
	}

	n.updateGauge()
	n.persist()
}

// Get returns the value for key. Expired entries are deleted and reported
// as absent. A hit makes the entry the most recently accessed.
func (n *Namespace[T]) Get(key string) (T, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var zero T
	e, ok := n.items[key]
	if !ok {
		return zero, false
	}
	now := n.now()
	if !now.Before(e.ExpiresAt) {
		n.removeEntry(e)
		metrics.CacheExpirations.WithLabelValues(n.cfg.Name).Inc()
		n.updateGauge()
		return zero, false
	}
	e.LastAccess = now
	n.moveToFront(e)
	return e.Value, true
}

// Has reports whether an unexpired entry exists for key.
func (n *Namespace[T]) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Delete removes key. It reports whether an entry was removed.
func (n *Namespace[T]) Delete(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	e, ok := n.items[key]
	if !ok {
		return false
	}
	n.removeEntry(e)
	n.updateGauge()
	n.persist()
	return true
}

// DeleteFunc removes every entry whose key matches and returns how many
// were removed.
func (n *Namespace[T]) DeleteFunc(match func(key string) bool) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	removed := 0
	for key, e := range n.items {
		if match(key) {
			n.removeEntry(e)
			removed++
		}
	}
	if removed > 0 {
		n.updateGauge()
		n.persist()
	}
	return removed
}

// Clear removes all entries and erases the persisted copy.
func (n *Namespace[T]) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.items = make(map[string]*Entry[T], n.cfg.MaxEntries)
	n.head.next = n.tail
	n.tail.prev = n.head
	n.updateGauge()

	if n.persister != nil {
		if err := n.persister.Remove(n.cfg.Name); err != nil {
			metrics.CachePersistErrors.WithLabelValues(n.cfg.Name, "remove").Inc()
			n.logger.Warn().Err(err).Msg("Failed to erase persisted cache namespace")
		}
	}
}

// PurgeExpired removes all expired entries and returns how many were removed.
func (n *Namespace[T]) PurgeExpired() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	removed := 0
	for e := n.tail.prev; e != n.head; {
		prev := e.prev
		if !now.Before(e.ExpiresAt) {
			n.removeEntry(e)
			removed++
		}
		e = prev
	}
	if removed > 0 {
		metrics.CacheExpirations.WithLabelValues(n.cfg.Name).Add(float64(removed))
		n.updateGauge()
		n.persist()
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (n *Namespace[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

// Stats returns size and the insertion timestamps of the oldest and newest
// entries.
func (n *Namespace[T]) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := Stats{Name: n.cfg.Name, Size: len(n.items), MaxEntries: n.cfg.MaxEntries}
	for _, e := range n.items {
		if s.OldestEntry.IsZero() || e.Timestamp.Before(s.OldestEntry) {
			s.OldestEntry = e.Timestamp
		}
		if e.Timestamp.After(s.NewestEntry) {
			s.NewestEntry = e.Timestamp
		}
	}
	return s
}

// list operations, called with mu held

func (n *Namespace[T]) addToFront(e *Entry[T]) {
	e.prev = n.head
	e.next = n.head.next
	n.head.next.prev = e
	n.head.next = e
}

func (n *Namespace[T]) moveToFront(e *Entry[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	n.addToFront(e)
}

func (n *Namespace[T]) removeEntry(e *Entry[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(n.items, e.Key)
}

func (n *Namespace[T]) evictOldest() {
	oldest := n.tail.prev
	if oldest == n.head {
		return
	}
	n.removeEntry(oldest)
	metrics.CacheEvictions.WithLabelValues(n.cfg.Name).Inc()
	n.logger.Debug().Str("key", oldest.Key).Msg("Evicted least recently accessed entry")
}

func (n *Namespace[T]) updateGauge() {
	metrics.CacheEntries.WithLabelValues(n.cfg.Name).Set(float64(len(n.items)))
}

// persistedRecord is the durable form of one entry. Timestamps are unix
// milliseconds.
type persistedRecord struct {
	CacheKey  string          `json:"cacheKey"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ExpiresAt int64           `json:"expiresAt"`
	Key       string          `json:"key"`
}

// persist rewrites the whole namespace. Failures are logged and swallowed.
// Called with mu held.
func (n *Namespace[T]) persist() {
	if n.persister == nil {
		return
	}

	records := make([]persistedRecord, 0, len(n.items))
	// Oldest access first so load can rebuild the order by appending to the front.
	for e := n.tail.prev; e != n.head; e = e.prev {
		data, err := json.Marshal(e.Value)
		if err != nil {
			metrics.CachePersistErrors.WithLabelValues(n.cfg.Name, "encode").Inc()
			n.logger.Warn().Err(err).Str("key", e.Key).Msg("Skipping unserializable cache entry")
			continue
		}
		records = append(records, persistedRecord{
			CacheKey:  n.cfg.Name + ":" + e.Key,
			Data:      data,
			Timestamp: e.Timestamp.UnixMilli(),
			ExpiresAt: e.ExpiresAt.UnixMilli(),
			Key:       e.Key,
		})
	}

	payload, err := json.Marshal(records)
	if err == nil {
		err = n.persister.Save(n.cfg.Name, payload)
	}
	if err != nil {
		metrics.CachePersistErrors.WithLabelValues(n.cfg.Name, "save").Inc()
		n.logger.Warn().Err(err).Msg("Failed to persist cache namespace")
	}
}

// load restores persisted entries, dropping those already expired.
func (n *Namespace[T]) load() {
	payload, err := n.persister.Load(n.cfg.Name)
	if err != nil {
		metrics.CachePersistErrors.WithLabelValues(n.cfg.Name, "load").Inc()
		n.logger.Warn().Err(err).Msg("Failed to load persisted cache namespace")
		return
	}
	if len(payload) == 0 {
		return
	}

	var records []persistedRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		metrics.CachePersistErrors.WithLabelValues(n.cfg.Name, "decode").Inc()
		n.logger.Warn().Err(err).Msg("Discarding corrupt persisted cache namespace")
		return
	}

	now := n.now()
	restored := 0
	for _, r := range records {
		expiresAt := time.UnixMilli(r.ExpiresAt)
		if !now.Before(expiresAt) {
			continue
		}
		var value T
		if err := json.Unmarshal(r.Data, &value); err != nil {
			n.logger.Debug().Err(err).Str("key", r.Key).Msg("Skipping undecodable persisted entry")
			continue
		}
		if existing, ok := n.items[r.Key]; ok {
			n.removeEntry(existing)
		}
		if len(n.items) >= n.cfg.MaxEntries {
			n.evictOldest()
		}
		ts := time.UnixMilli(r.Timestamp)
		e := &Entry[T]{Key: r.Key, Value: value, Timestamp: ts, ExpiresAt: expiresAt, LastAccess: ts}
		n.addToFront(e)
		n.items[r.Key] = e
		restored++
	}
	n.updateGauge()
	n.logger.Debug().Int("restored", restored).Int("persisted", len(records)).Msg("Loaded persisted cache namespace")
}
