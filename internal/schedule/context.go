// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/models"
)

// ApproachWindow is how long before a prayer the approaching flag is set.
const ApproachWindow = 15 * time.Minute

// Analytics describes how busy a display currently is.
type Analytics struct {
	Usage    models.UsageLevel
	Audience models.AudienceSize
}

// AnalyticsProvider reports live usage for a display.
type AnalyticsProvider interface {
	DisplayAnalytics(ctx context.Context, displayID string, now time.Time) (Analytics, error)
}

// StaticAnalytics always reports the same values.
type StaticAnalytics Analytics

// DisplayAnalytics implements AnalyticsProvider.
func (s StaticAnalytics) DisplayAnalytics(context.Context, string, time.Time) (Analytics, error) {
	return Analytics(s), nil
}

// ContextBuilder produces the SchedulingContext snapshot used for scoring.
type ContextBuilder struct {
	analytics AnalyticsProvider
	logger    zerolog.Logger
}

// NewContextBuilder creates a builder. analytics may be nil.
func NewContextBuilder(analytics AnalyticsProvider) *ContextBuilder {
	return &ContextBuilder{analytics: analytics, logger: logging.WithComponent("schedule")}
}

// Build snapshots the situation of displayID at now. prayer may be nil
// when the display has no published prayer times; loc is the display's
// time zone.
func (b *ContextBuilder) Build(ctx context.Context, displayID string, now time.Time, loc *time.Location, prayer *models.PrayerTimes) models.SchedulingContext {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	sctx := models.SchedulingContext{
		Now:          now,
		DayOfWeek:    local.Weekday(),
		TimeOfDay:    TimeOfDayAt(local),
		DisplayUsage: models.UsageNormal,
		AudienceSize: models.AudienceMedium,
	}

	if prayer != nil {
		next, approaching, err := nextPrayer(prayer, local, loc)
		if err != nil {
			b.logger.Debug().Err(err).Str("display_id", displayID).Msg("Ignoring unusable prayer times")
		} else {
			sctx.NextPrayer = next
			sctx.ApproachingPrayer = approaching
		}
	}

	if b.analytics != nil {
		a, err := b.analytics.DisplayAnalytics(ctx, displayID, now)
		if err != nil {
			b.logger.Debug().Err(err).Str("display_id", displayID).Msg("Analytics unavailable, using defaults")
		} else {
			if a.Usage != "" {
				sctx.DisplayUsage = a.Usage
			}
			if a.Audience != "" {
				sctx.AudienceSize = a.Audience
			}
		}
	}

	return sctx
}

// TimeOfDayAt buckets a local wall-clock time.
func TimeOfDayAt(local time.Time) models.TimeOfDay {
	switch h := local.Hour(); {
	case h >= 3 && h < 6:
		return models.PreDawn
	case h >= 6 && h < 11:
		return models.Morning
	case h >= 11 && h < 14:
		return models.Midday
	case h >= 14 && h < 18:
		return models.Afternoon
	case h >= 18 && h < 21:
		return models.PostSunset
	default:
		return models.Night
	}
}

// nextPrayer returns the next prayer of the day at or after local and
// whether it starts within ApproachWindow.
func nextPrayer(pt *models.PrayerTimes, local time.Time, loc *time.Location) (string, bool, error) {
	instants, err := pt.Instants(loc)
	if err != nil {
		return "", false, err
	}
	for _, p := range instants {
		if p.At.Before(local) {
			continue
		}
		return p.Name, p.At.Sub(local) <= ApproachWindow, nil
	}
	return "", false, nil
}
