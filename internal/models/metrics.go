// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package models

import "time"

// PerformanceTier is derived from a content item's engagement rate.
type PerformanceTier string

const (
	PerformancePoor      PerformanceTier = "poor"
	PerformanceAverage   PerformanceTier = "average"
	PerformanceGood      PerformanceTier = "good"
	PerformanceExcellent PerformanceTier = "excellent"
)

// PerformanceFor maps an engagement rate in [0,1] to its tier.
func PerformanceFor(rate float64) PerformanceTier {
	switch {
	case rate >= 0.8:
		return PerformanceExcellent
	case rate >= 0.6:
		return PerformanceGood
	case rate >= 0.3:
		return PerformanceAverage
	default:
		return PerformancePoor
	}
}

// ContentMetrics is the running performance record of one content item.
type ContentMetrics struct {
	ContentID        string          `json:"content_id"`
	TotalDisplayTime int             `json:"total_display_time"`
	ViewCount        int             `json:"view_count"`
	EngagementRate   float64         `json:"engagement_rate"`
	LastShown        time.Time       `json:"last_shown"`
	Performance      PerformanceTier `json:"performance"`
}
