// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package schedule

import (
	"strings"
	"time"

	"github.com/tomtom215/minbar/internal/models"
)

// Rule adds Weight*Priority to the score of every item it matches. Rules are
// cumulative.
type Rule struct {
	Name     string
	Weight   float64
	Priority int
	Match    func(item *models.ContentItem, sctx models.SchedulingContext) bool
}

// MetricsLookup returns the tracked metrics of a content item.
type MetricsLookup func(contentID string) (models.ContentMetrics, bool)

var (
	fridayTerms = []string{"jumu'ah", "jumuah", "jummah", "jumma", "friday", "khutbah"}
	prayerTerms = []string{"prayer", "salah", "salat", "adhan", "azan", "iqamah", "dua", "dhikr", "quran", "jumu'ah", "jummah"}
)

// DefaultRules returns the standard rule set. lookup may be nil, in which
// case the engagement rule never matches.
func DefaultRules(lookup MetricsLookup) []Rule {
	return []Rule{
		{
			Name:     "friday-congregation",
			Weight:   2,
			Priority: 10,
			Match: func(item *models.ContentItem, sctx models.SchedulingContext) bool {
				return sctx.DayOfWeek == time.Friday && mentions(item.Title, fridayTerms)
			},
		},
		{
			Name:     "prayer-window",
			Weight:   1.5,
			Priority: 10,
			Match: func(item *models.ContentItem, sctx models.SchedulingContext) bool {
				return sctx.ApproachingPrayer && (mentions(item.Title, prayerTerms) || mentions(item.Description, prayerTerms))
			},
		},
		{
			Name:     "high-engagement",
			Weight:   1,
			Priority: 10,
			Match: func(item *models.ContentItem, _ models.SchedulingContext) bool {
				if lookup == nil {
					return false
				}
				m, ok := lookup(item.ID)
				return ok && m.EngagementRate > 0.7
			},
		},
		{
			Name:     "fresh-content",
			Weight:   1,
			Priority: 5,
			Match: func(item *models.ContentItem, sctx models.SchedulingContext) bool {
				return !item.CreatedAt.IsZero() && item.AgeDays(sctx.Now) <= 3
			},
		},
	}
}

func mentions(text string, terms []string) bool {
	text = strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
