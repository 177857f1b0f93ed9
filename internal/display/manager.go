// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package display

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/cache"
	"github.com/tomtom215/minbar/internal/content"
	"github.com/tomtom215/minbar/internal/datastore"
	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
	"github.com/tomtom215/minbar/internal/queue"
	"github.com/tomtom215/minbar/internal/schedule"
)

// Notifier is told when a watched display's content changes.
type Notifier interface {
	NotifyContentUpdated(displayID string, items []models.ContentItem)
}

// Config configures a Manager.
type Config struct {
	// DefaultLimit is used when GetDisplayContent is called with limit <= 0.
	DefaultLimit int
	// PageSize is the number of candidates read per selection.
	PageSize int
	// Queue holds defaults for queued items.
	Queue queue.Defaults
	// WatchTimeout bounds the refetch triggered by a change event.
	WatchTimeout time.Duration
}

// DefaultConfig returns the standard manager configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 5,
		PageSize:     50,
		Queue:        queue.DefaultDefaults(),
		WatchTimeout: 30 * time.Second,
	}
}

// Options tune a single GetDisplayContent call.
type Options struct {
	// SkipQueue leaves the selected items out of background processing.
	SkipQueue bool
	// Fresh bypasses the cache and reads the backend.
	Fresh bool
	// PageSize overrides the candidate page size when positive.
	PageSize int
}

type options struct {
	analytics   schedule.AnalyticsProvider
	rules       []schedule.Rule
	notifier    Notifier
	thumbClient *http.Client
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*options)

// WithAnalytics sets the source of display usage and audience size.
func WithAnalytics(a schedule.AnalyticsProvider) Option {
	return func(o *options) { o.analytics = a }
}

// WithRules replaces the default scheduling rules.
func WithRules(rules ...schedule.Rule) Option {
	return func(o *options) { o.rules = rules }
}

// WithNotifier sets who is told about content changes on watched displays.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithThumbnailCheck makes background processing verify thumbnails over HTTP.
func WithThumbnailCheck(c *http.Client) Option {
	return func(o *options) { o.thumbClient = c }
}

// WithLogger sets the manager logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Manager is the entry point used by the display layer. It combines the data
// store, validator, scheduling engine, optimizer and processing queue.
type Manager struct {
	cfg       Config
	store     *datastore.Store
	validator *content.Validator
	optimizer *content.Optimizer
	contexts  *schedule.ContextBuilder
	engine    *schedule.Engine
	tracker   *schedule.Tracker
	queue     *queue.Queue
	driver    *queue.Driver
	artifacts *Artifacts
	notifier  Notifier
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	watches map[string]*watch

	fresh    atomic.Int64
	fallback atomic.Int64
	empty    atomic.Int64
}

// New creates a Manager over store.
func New(store *datastore.Store, cfg Config, opts ...Option) *Manager {
	o := options{logger: logging.WithComponent("display-manager"), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.WatchTimeout <= 0 {
		cfg.WatchTimeout = def.WatchTimeout
	}

	tracker := schedule.NewTracker(o.now)
	engineOpts := []schedule.EngineOption{}
	if o.rules != nil {
		engineOpts = append(engineOpts, schedule.WithRules(o.rules...))
	}
	optimizer := content.NewOptimizer(o.now)
	artifacts := NewArtifacts()
	q := queue.New(cfg.Queue, o.now)

	return &Manager{
		cfg:       cfg,
		store:     store,
		validator: content.NewValidator(o.now),
		optimizer: optimizer,
		contexts:  schedule.NewContextBuilder(o.analytics),
		engine:    schedule.NewEngine(tracker.Get, engineOpts...),
		tracker:   tracker,
		queue:     q,
		driver:    queue.NewDriver(q, NewOptimizationProcessor(optimizer, artifacts, o.thumbClient, o.now), o.logger),
		artifacts: artifacts,
		notifier:  o.notifier,
		logger:    o.logger,
		now:       o.now,
		watches:   make(map[string]*watch),
	}
}

// Store returns the underlying data store.
func (m *Manager) Store() *datastore.Store {
	return m.store
}

// Driver returns the queue driver, to be run periodically.
func (m *Manager) Driver() *queue.Driver {
	return m.driver
}

// GetDisplayContent returns up to limit items for displayID, best first. It
// never returns nil: when the backend is unreachable the last cached page is
// used, and when there is nothing at all the result is empty.
func (m *Manager) GetDisplayContent(ctx context.Context, displayID string, limit int, opts Options) []models.ContentItem {
	if limit <= 0 {
		limit = m.cfg.DefaultLimit
	}
	log := logging.Ctx(ctx).With().Str("display_id", displayID).Logger()

	pageSize := m.cfg.PageSize
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}

	outcome := "fresh"
	page, err := m.store.FetchContent(ctx, displayID, 0, pageSize, !opts.Fresh)
	if err != nil {
		log.Warn().Err(err).Msg("Content fetch failed, falling back to cache")
		outcome = "cached_fallback"
		page = m.store.CachedContent(displayID, 0, pageSize)
	}
	if page == nil || len(page.Items) == 0 {
		m.countSelection("empty")
		return []models.ContentItem{}
	}

	valid, rejected := m.validator.Filter(page.Items)
	metrics.SelectionCandidates.Observe(float64(len(valid)))
	if len(rejected) > 0 {
		log.Debug().Int("rejected", len(rejected)).Msg("Excluded invalid content")
	}
	if len(valid) == 0 {
		m.countSelection("empty")
		return []models.ContentItem{}
	}

	selected := valid
	if len(valid) > limit {
		sctx := m.schedulingContext(ctx, displayID)
		selected = m.engine.Select(valid, limit, sctx)
	}

	out := m.optimizer.Optimize(selected)
	for i := range out {
		if art, ok := m.artifacts.Get(out[i].ID); ok && out[i].ThumbnailURL == "" {
			out[i].ThumbnailURL = art.ThumbnailURL
		}
		m.tracker.RecordShown(&out[i])
	}

	if !opts.SkipQueue {
		for i := range selected {
			if err := m.queue.Enqueue(selected[i], m.queue.Defaults().DefaultOptions()); err != nil {
				log.Debug().Err(err).Str("content_id", selected[i].ID).Msg("Could not enqueue selected item")
			}
		}
	}

	m.countSelection(outcome)
	return out
}

func (m *Manager) schedulingContext(ctx context.Context, displayID string) models.SchedulingContext {
	now := m.now()
	loc := time.UTC

	d, err := m.store.FetchDisplay(ctx, displayID, true)
	if err != nil {
		m.logger.Debug().Err(err).Str("display_id", displayID).Msg("Display unavailable for scheduling context")
	} else if d != nil {
		loc = d.Location()
	}

	date := now.In(loc).Format(models.DateLayout)
	prayer, err := m.store.FetchPrayerTimes(ctx, displayID, date, true)
	if err != nil {
		m.logger.Debug().Err(err).Str("display_id", displayID).Msg("Prayer times unavailable for scheduling context")
		prayer = nil
	}

	return m.contexts.Build(ctx, displayID, now, loc, prayer)
}

func (m *Manager) countSelection(outcome string) {
	metrics.SelectionsTotal.WithLabelValues(outcome).Inc()
	switch outcome {
	case "fresh":
		m.fresh.Add(1)
	case "cached_fallback":
		m.fallback.Add(1)
	default:
		m.empty.Add(1)
	}
}

// AddToQueue schedules background processing for item.
func (m *Manager) AddToQueue(item models.ContentItem, opts models.ProcessingOptions) error {
	return m.queue.Enqueue(item, opts)
}

// DefaultProcessingOptions returns the options used when a caller gives none.
func (m *Manager) DefaultProcessingOptions() models.ProcessingOptions {
	return m.queue.Defaults().DefaultOptions()
}

// GetContentMetrics returns the tracked metrics of one item.
func (m *Manager) GetContentMetrics(contentID string) (models.ContentMetrics, bool) {
	return m.tracker.Get(contentID)
}

// AllContentMetrics returns metrics for every tracked item.
func (m *Manager) AllContentMetrics() []models.ContentMetrics {
	return m.tracker.All()
}

// RecordEngagement folds an engagement sample into an item's metrics.
func (m *Manager) RecordEngagement(contentID string, rate float64) error {
	return m.tracker.RecordEngagement(contentID, rate)
}

// Artifact returns the background processing result for an item.
func (m *Manager) Artifact(contentID string) (Artifact, bool) {
	return m.artifacts.Get(contentID)
}

// SelectionStats counts GetDisplayContent outcomes.
type SelectionStats struct {
	Fresh          int64 `json:"fresh"`
	CachedFallback int64 `json:"cached_fallback"`
	Empty          int64 `json:"empty"`
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	Cache         []cache.Stats      `json:"cache"`
	QueueDepth    int                `json:"queue_depth"`
	QueueItems    []models.QueueItem `json:"queue_items"`
	QueueRunning  bool               `json:"queue_running"`
	TrackedItems  int                `json:"tracked_items"`
	Artifacts     int                `json:"artifacts"`
	Watches       int                `json:"watches"`
	Subscriptions int                `json:"subscriptions"`
	Selections    SelectionStats     `json:"selections"`
	Rules         []string           `json:"rules"`
}

// GetStats reports cache, queue and selection statistics.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	watches := len(m.watches)
	m.mu.Unlock()

	rules := m.engine.Rules()
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}

	return Stats{
		Cache:         m.store.CacheStats(),
		QueueDepth:    m.queue.Len(),
		QueueItems:    m.queue.Items(),
		QueueRunning:  m.driver.Running(),
		TrackedItems:  m.tracker.Len(),
		Artifacts:     m.artifacts.Len(),
		Watches:       watches,
		Subscriptions: m.store.Subscriptions(),
		Selections: SelectionStats{
			Fresh:          m.fresh.Load(),
			CachedFallback: m.fallback.Load(),
			Empty:          m.empty.Load(),
		},
		Rules: names,
	}
}

// ClearCache empties the data cache and the processing artifacts.
func (m *Manager) ClearCache() {
	m.store.ClearCache()
	m.artifacts.reset()
	m.logger.Info().Msg("Cleared content cache")
}

// Cleanup stops all watches, closes the queue and tears down change
// subscriptions.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	stops := make([]func(), 0, len(m.watches))
	for id, w := range m.watches {
		stops = append(stops, w.stop)
		delete(m.watches, id)
	}
	m.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	m.queue.Close()
	if err := m.store.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close data store")
	}
}
