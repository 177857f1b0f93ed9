// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/minbar/internal/models"
)

// EngagementAlpha is the smoothing factor applied to engagement samples.
const EngagementAlpha = 0.2

// Tracker keeps per-item display metrics in memory.
type Tracker struct {
	mu      sync.RWMutex
	metrics map[string]*models.ContentMetrics
	sampled map[string]bool
	now     func() time.Time
}

// NewTracker creates an empty tracker; nil now means time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		metrics: make(map[string]*models.ContentMetrics),
		sampled: make(map[string]bool),
		now:     now,
	}
}

// RecordShown counts one selection of item.
func (t *Tracker) RecordShown(item *models.ContentItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.entry(item.ID)
	m.ViewCount++
	m.TotalDisplayTime += item.DisplayDuration
	m.LastShown = t.now()
}

// RecordEngagement folds an engagement sample in [0,1] into the item's
// moving average. The first sample is taken as is.
func (t *Tracker) RecordEngagement(contentID string, rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("engagement rate %v outside [0,1]", rate)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.entry(contentID)
	if t.sampled[contentID] {
		m.EngagementRate = EngagementAlpha*rate + (1-EngagementAlpha)*m.EngagementRate
	} else {
		m.EngagementRate = rate
		t.sampled[contentID] = true
	}
	m.Performance = models.PerformanceFor(m.EngagementRate)
	return nil
}

// Get returns the metrics of one item.
func (t *Tracker) Get(contentID string) (models.ContentMetrics, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.metrics[contentID]
	if !ok {
		return models.ContentMetrics{}, false
	}
	return *m, true
}

// All returns every tracked item ordered by content id.
func (t *Tracker) All() []models.ContentMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ContentMetrics, 0, len(t.metrics))
	for _, m := range t.metrics {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	return out
}

// Len returns the number of tracked items.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.metrics)
}

// Reset forgets everything.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = make(map[string]*models.ContentMetrics)
	t.sampled = make(map[string]bool)
}

func (t *Tracker) entry(id string) *models.ContentMetrics {
	m, ok := t.metrics[id]
	if !ok {
		m = &models.ContentMetrics{ContentID: id}
		t.metrics[id] = m
	}
	return m
}
