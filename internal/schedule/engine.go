// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package schedule

import (
	"math"
	"sort"

	"github.com/tomtom215/minbar/internal/models"
)

// Engine scores and selects content. Scoring is deterministic for a given
// item set, context and metrics.
type Engine struct {
	rules   []Rule
	metrics MetricsLookup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules replaces the rule set.
func WithRules(rules ...Rule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// NewEngine creates an engine using DefaultRules(lookup) unless WithRules
// is given.
func NewEngine(lookup MetricsLookup, opts ...EngineOption) *Engine {
	e := &Engine{metrics: lookup, rules: DefaultRules(lookup)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the active rule set.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Score computes the score of item in sctx.
func (e *Engine) Score(item *models.ContentItem, sctx models.SchedulingContext) float64 {
	score := math.Log(math.Max(item.SponsorshipAmount, 0)+1) * 10
	score += TierBonus(item.SponsorshipTier)
	score += math.Max(0, 50-2*item.AgeDays(sctx.Now))

	for _, r := range e.rules {
		if r.Match != nil && r.Match(item, sctx) {
			score += r.Weight * float64(r.Priority)
		}
	}

	if e.metrics != nil {
		if m, ok := e.metrics(item.ID); ok {
			score += PerformanceAdjustment(m.Performance)
		}
	}
	return score
}

// Select returns the n best items, highest score first. When there are no
// more than n items they are returned unchanged. Equal scores keep their
// input order.
func (e *Engine) Select(items []models.ContentItem, n int, sctx models.SchedulingContext) []models.ContentItem {
	if len(items) <= n {
		return items
	}
	if n <= 0 {
		return []models.ContentItem{}
	}

	type scored struct {
		item  models.ContentItem
		score float64
	}
	ranked := make([]scored, len(items))
	for i := range items {
		ranked[i] = scored{item: items[i], score: e.Score(&items[i], sctx)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]models.ContentItem, n)
	for i := range out {
		out[i] = ranked[i].item
	}
	return out
}

// TierBonus is the fixed bonus of a sponsorship tier.
func TierBonus(tier models.SponsorshipTier) float64 {
	switch tier {
	case models.TierPlatinum:
		return 40
	case models.TierGold:
		return 30
	case models.TierSilver:
		return 20
	default:
		return 10
	}
}

// PerformanceAdjustment maps a performance tier to a score delta. Items
// without an engagement history have no tier and get 0.
func PerformanceAdjustment(p models.PerformanceTier) float64 {
	switch p {
	case models.PerformanceExcellent:
		return 30
	case models.PerformanceGood:
		return 15
	case models.PerformancePoor:
		return -20
	default:
		return 0
	}
}
