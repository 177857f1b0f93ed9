// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package datastore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/cache"
	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
	"github.com/tomtom215/minbar/internal/source"
	"github.com/tomtom215/minbar/internal/validation"
)

var (
	// ErrFetch wraps remote failures other than a missing record.
	ErrFetch = errors.New("fetch failed")

	// ErrInvalidRecord is returned when a remote record fails schema validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrNoNotifier is returned by SubscribeToChanges when no change feed
	// is configured.
	ErrNoNotifier = errors.New("change notifications unavailable")
)

// Namespaces configures the three cache namespaces.
type Namespaces struct {
	Displays    cache.NamespaceConfig
	Content     cache.NamespaceConfig
	PrayerTimes cache.NamespaceConfig
}

// DefaultNamespaces returns the standard TTLs and ceilings.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Displays:    cache.NamespaceConfig{Name: "displays", TTL: 5 * time.Minute, MaxEntries: 10, Persistent: true},
		Content:     cache.NamespaceConfig{Name: "content", TTL: 2 * time.Minute, MaxEntries: 50, Persistent: true},
		PrayerTimes: cache.NamespaceConfig{Name: "prayerTimes", TTL: 24 * time.Hour, MaxEntries: 30, Persistent: true},
	}
}

// Config configures a Store.
type Config struct {
	Namespaces Namespaces

	// PageSize is used by Prefetch for the first content page.
	PageSize int

	// DegradedOver is the health check latency above which the backend is
	// reported as degraded.
	DegradedOver time.Duration
}

// DefaultConfig returns the standard store configuration.
func DefaultConfig() Config {
	return Config{
		Namespaces:   DefaultNamespaces(),
		PageSize:     50,
		DegradedOver: time.Second,
	}
}

// contentEntry is what the content namespace holds: either a listing page
// or a single item written through StoreContentItem.
type contentEntry struct {
	Page *models.ContentPage `json:"page,omitempty"`
	Item *models.ContentItem `json:"item,omitempty"`
}

// Store is the data access layer: cache-or-fetch reads, write-through
// writes and change-driven invalidation over a remote DataSource.
type Store struct {
	src      source.DataSource
	notifier source.ChangeNotifier
	logger   zerolog.Logger
	now      func() time.Time
	cfg      Config

	displays *cache.Namespace[models.Display]
	content  *cache.Namespace[contentEntry]
	prayers  *cache.Namespace[models.PrayerTimes]

	mu   sync.Mutex
	subs map[string]*subscription
}

type options struct {
	notifier  source.ChangeNotifier
	persister cache.Persister
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithNotifier enables SubscribeToChanges.
func WithNotifier(n source.ChangeNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithPersister persists the cache namespaces that are marked persistent.
func WithPersister(p cache.Persister) Option {
	return func(o *options) { o.persister = p }
}

// WithLogger sets the store logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now for the store and its caches.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a Store reading from src.
func New(src source.DataSource, cfg Config, opts ...Option) *Store {
	o := options{logger: logging.WithComponent("datastore"), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.DegradedOver <= 0 {
		cfg.DegradedOver = time.Second
	}

	cacheOpts := []cache.Option{cache.WithLogger(o.logger), cache.WithClock(o.now)}
	if o.persister != nil {
		cacheOpts = append(cacheOpts, cache.WithPersister(o.persister))
	}

	return &Store{
		src:      src,
		notifier: o.notifier,
		logger:   o.logger,
		now:      o.now,
		cfg:      cfg,
		displays: cache.NewNamespace[models.Display](cfg.Namespaces.Displays, cacheOpts...),
		content:  cache.NewNamespace[contentEntry](cfg.Namespaces.Content, cacheOpts...),
		prayers:  cache.NewNamespace[models.PrayerTimes](cfg.Namespaces.PrayerTimes, cacheOpts...),
		subs:     make(map[string]*subscription),
	}
}

func displayKey(id string) string { return "display:" + id }

func contentPagePrefix(displayID string) string { return "content:" + displayID + ":" }

func contentPageKey(displayID string, page, pageSize int) string {
	return contentPagePrefix(displayID) + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
}

func contentItemKey(id string) string { return "item:" + id }

func prayerPrefix(displayID string) string { return "prayer:" + displayID + ":" }

func prayerKey(displayID, date string) string { return prayerPrefix(displayID) + date }

// FetchDisplay returns the display, or nil when it does not exist.
func (s *Store) FetchDisplay(ctx context.Context, id string, useCache bool) (*models.Display, error) {
	key := displayKey(id)
	if useCache {
		if d, ok := s.displays.Get(key); ok {
			metrics.DataFetches.WithLabelValues("display", "hit").Inc()
			return &d, nil
		}
	}

	rec, err := s.src.GetByID(ctx, source.EntityDisplays, id)
	if err != nil {
		return nil, s.fetchError("display", source.EntityDisplays, id, err)
	}

	var d models.Display
	if err := decodeRecord(rec, &d); err != nil {
		return nil, s.invalid(source.EntityDisplays, id, err)
	}
	metrics.DataFetches.WithLabelValues("display", "miss").Inc()
	s.displays.Set(key, d)
	return &d, nil
}

// FetchContent returns one page of a display's content, newest first. An
// empty page is cached like any other. Rows that fail validation are
// dropped from the page.
func (s *Store) FetchContent(ctx context.Context, displayID string, page, pageSize int, useCache bool) (*models.ContentPage, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	key := contentPageKey(displayID, page, pageSize)
	if useCache {
		if e, ok := s.content.Get(key); ok && e.Page != nil {
			metrics.DataFetches.WithLabelValues("content", "hit").Inc()
			p := copyPage(*e.Page)
			return &p, nil
		}
	}

	from := page * pageSize
	rows, err := s.src.List(ctx, source.EntityContent, source.Query{
		Filters: map[string]string{"display_id": displayID},
		Order:   &source.Order{Column: "created_at", Descending: true},
		Range:   &source.Range{From: from, To: from + pageSize - 1},
	})
	if err != nil {
		return nil, s.fetchError("content", source.EntityContent, displayID, err)
	}

	items := make([]models.ContentItem, 0, len(rows))
	for _, rec := range rows {
		var item models.ContentItem
		if err := decodeRecord(rec, &item); err != nil {
			s.quarantine(source.EntityContent, rec, err)
			continue
		}
		items = append(items, item)
	}

	p := models.ContentPage{
		DisplayID: displayID,
		Page:      page,
		PageSize:  pageSize,
		Items:     items,
		FetchedAt: s.now(),
	}
	metrics.DataFetches.WithLabelValues("content", "miss").Inc()
	s.content.Set(key, contentEntry{Page: &p})
	out := copyPage(p)
	return &out, nil
}

// FetchContentItem returns a single content item, or nil when it does not
// exist.
func (s *Store) FetchContentItem(ctx context.Context, id string, useCache bool) (*models.ContentItem, error) {
	key := contentItemKey(id)
	if useCache {
		if e, ok := s.content.Get(key); ok && e.Item != nil {
			metrics.DataFetches.WithLabelValues("content_item", "hit").Inc()
			item := *e.Item
			return &item, nil
		}
	}

	rec, err := s.src.GetByID(ctx, source.EntityContent, id)
	if err != nil {
		return nil, s.fetchError("content_item", source.EntityContent, id, err)
	}
	var item models.ContentItem
	if err := decodeRecord(rec, &item); err != nil {
		return nil, s.invalid(source.EntityContent, id, err)
	}
	metrics.DataFetches.WithLabelValues("content_item", "miss").Inc()
	s.content.Set(key, contentEntry{Item: &item})
	out := item
	return &out, nil
}

// CachedContent returns a cached content page without touching the remote
// source. It returns nil when nothing usable is cached.
func (s *Store) CachedContent(displayID string, page, pageSize int) *models.ContentPage {
	if pageSize <= 0 {
		pageSize = s.cfg.PageSize
	}
	e, ok := s.content.Get(contentPageKey(displayID, page, pageSize))
	if !ok || e.Page == nil {
		return nil
	}
	p := copyPage(*e.Page)
	return &p
}

// FetchPrayerTimes returns the prayer times of a display for date
// (YYYY-MM-DD), or nil when none are published.
func (s *Store) FetchPrayerTimes(ctx context.Context, displayID, date string, useCache bool) (*models.PrayerTimes, error) {
	key := prayerKey(displayID, date)
	if useCache {
		if pt, ok := s.prayers.Get(key); ok {
			metrics.DataFetches.WithLabelValues("prayer_times", "hit").Inc()
			return &pt, nil
		}
	}

	rows, err := s.src.List(ctx, source.EntityPrayerTimes, source.Query{
		Filters: map[string]string{"display_id": displayID, "date": date},
		Range:   &source.Range{From: 0, To: 0},
	})
	if err != nil {
		return nil, s.fetchError("prayer_times", source.EntityPrayerTimes, displayID, err)
	}
	if len(rows) == 0 {
		metrics.DataFetches.WithLabelValues("prayer_times", "not_found").Inc()
		return nil, nil
	}

	var pt models.PrayerTimes
	if err := decodeRecord(rows[0], &pt); err != nil {
		return nil, s.invalid(source.EntityPrayerTimes, displayID+"/"+date, err)
	}
	metrics.DataFetches.WithLabelValues("prayer_times", "miss").Inc()
	s.prayers.Set(key, pt)
	return &pt, nil
}

// StoreDisplay writes d to the remote source and caches the stored value.
func (s *Store) StoreDisplay(ctx context.Context, d *models.Display) (*models.Display, error) {
	var stored models.Display
	if err := s.upsert(ctx, source.EntityDisplays, d, &stored); err != nil {
		return nil, err
	}
	s.displays.Set(displayKey(stored.ID), stored)
	return &stored, nil
}

// StoreContentItem writes item to the remote source. The item is cached
// under its own key and the owning display's cached pages are dropped,
// since their order and membership may have changed.
func (s *Store) StoreContentItem(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	var stored models.ContentItem
	if err := s.upsert(ctx, source.EntityContent, item, &stored); err != nil {
		return nil, err
	}
	if stored.DisplayID != "" {
		s.content.DeleteFunc(hasPrefix(contentPagePrefix(stored.DisplayID)))
	}
	s.content.Set(contentItemKey(stored.ID), contentEntry{Item: &stored})
	return &stored, nil
}

// StorePrayerTimes writes pt to the remote source and caches the stored value.
func (s *Store) StorePrayerTimes(ctx context.Context, pt *models.PrayerTimes) (*models.PrayerTimes, error) {
	var stored models.PrayerTimes
	if err := s.upsert(ctx, source.EntityPrayerTimes, pt, &stored); err != nil {
		return nil, err
	}
	s.prayers.Set(prayerKey(stored.DisplayID, stored.Date), stored)
	return &stored, nil
}

func (s *Store) upsert(ctx context.Context, entity string, in, out any) error {
	if serr := validation.ValidateStruct(in); serr != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidRecord, entity, serr)
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entity, err)
	}
	rec, err := s.src.Upsert(ctx, entity, payload)
	if err != nil {
		return fmt.Errorf("%w: store %s: %w", ErrFetch, entity, err)
	}
	// Fall back to what we sent when the backend echoes nothing usable.
	if err := decodeRecord(rec, out); err != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode stored %s: %w", entity, err)
		}
	}
	return nil
}

// Prefetch reads a display, its first content page and today's and
// tomorrow's prayer times from the remote source, populating the cache.
func (s *Store) Prefetch(ctx context.Context, displayID string) error {
	d, err := s.FetchDisplay(ctx, displayID, false)
	if err != nil {
		return fmt.Errorf("prefetch display %s: %w", displayID, err)
	}
	if _, err := s.FetchContent(ctx, displayID, 0, s.cfg.PageSize, false); err != nil {
		return fmt.Errorf("prefetch content for %s: %w", displayID, err)
	}

	today := s.now().In(d.Location())
	for _, day := range []time.Time{today, today.AddDate(0, 0, 1)} {
		date := day.Format(models.DateLayout)
		if _, err := s.FetchPrayerTimes(ctx, displayID, date, false); err != nil {
			return fmt.Errorf("prefetch prayer times for %s on %s: %w", displayID, date, err)
		}
	}

	s.logger.Debug().Str("display_id", displayID).Msg("Prefetched display data")
	return nil
}

// ClearCache empties every namespace, including persisted copies.
func (s *Store) ClearCache() {
	s.displays.Clear()
	s.content.Clear()
	s.prayers.Clear()
}

// PurgeExpired drops expired entries from every namespace.
func (s *Store) PurgeExpired() int {
	return s.displays.PurgeExpired() + s.content.PurgeExpired() + s.prayers.PurgeExpired()
}

// CacheStats returns per-namespace statistics.
func (s *Store) CacheStats() []cache.Stats {
	return []cache.Stats{s.displays.Stats(), s.content.Stats(), s.prayers.Stats()}
}

// Close tears down all change subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	return nil
}

func (s *Store) fetchError(kind, entity, id string, err error) error {
	if errors.Is(err, source.ErrNotFound) {
		metrics.DataFetches.WithLabelValues(kind, "not_found").Inc()
		return nil
	}
	metrics.DataFetches.WithLabelValues(kind, "error").Inc()
	return fmt.Errorf("%w: %s %s: %w", ErrFetch, entity, id, err)
}

func (s *Store) invalid(entity, id string, err error) error {
	metrics.QuarantinedRecords.WithLabelValues(entity).Inc()
	s.logger.Warn().Err(err).Str("entity", entity).Str("id", id).Msg("Remote record failed validation")
	return fmt.Errorf("%w: %s %s: %w", ErrInvalidRecord, entity, id, err)
}

func (s *Store) quarantine(entity string, rec source.Record, err error) {
	metrics.QuarantinedRecords.WithLabelValues(entity).Inc()
	s.logger.Warn().Err(err).Str("entity", entity).Int("bytes", len(rec)).Msg("Quarantined invalid remote record")
}

func decodeRecord(rec source.Record, out any) error {
	if len(rec) == 0 {
		return errors.New("empty record")
	}
	if err := json.Unmarshal(rec, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if serr := validation.ValidateStruct(out); serr != nil {
		return serr
	}
	return nil
}

func copyPage(p models.ContentPage) models.ContentPage {
	p.Items = append([]models.ContentItem(nil), p.Items...)
	return p
}

func hasPrefix(prefix string) func(string) bool {
	return func(key string) bool { return strings.HasPrefix(key, prefix) }
}
