// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/minbar/internal/models"
)

type failingAnalytics struct{}

func (failingAnalytics) DisplayAnalytics(context.Context, string, time.Time) (Analytics, error) {
	return Analytics{}, errors.New("analytics offline")
}

var fridayTimes = &models.PrayerTimes{
	DisplayID: "d1",
	Date:      "2026-03-06",
	Fajr:      "05:10",
	Dhuhr:     "12:30",
	Asr:       "15:45",
	Maghrib:   "18:05",
	Isha:      "19:30",
	Jummah:    "13:00",
}

func TestTimeOfDayAt(t *testing.T) {
	tests := []struct {
		hour int
		want models.TimeOfDay
	}{
		{1, models.Night},
		{4, models.PreDawn},
		{8, models.Morning},
		{12, models.Midday},
		{16, models.Afternoon},
		{19, models.PostSunset},
		{23, models.Night},
	}
	for _, tt := range tests {
		at := time.Date(2026, 3, 4, tt.hour, 0, 0, 0, time.UTC)
		if got := TimeOfDayAt(at); got != tt.want {
			t.Errorf("TimeOfDayAt(%02d:00) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestContextBuilder_Build(t *testing.T) {
	b := NewContextBuilder(nil)

	t.Run("approaching jummah", func(t *testing.T) {
		now := time.Date(2026, 3, 6, 12, 50, 0, 0, time.UTC)
		sctx := b.Build(context.Background(), "d1", now, time.UTC, fridayTimes)
		if !sctx.ApproachingPrayer || sctx.NextPrayer != "jummah" {
			t.Errorf("got approaching=%v next=%q, want true jummah", sctx.ApproachingPrayer, sctx.NextPrayer)
		}
		if sctx.DayOfWeek != time.Friday {
			t.Errorf("DayOfWeek = %v", sctx.DayOfWeek)
		}
	})

	t.Run("prayer far away", func(t *testing.T) {
		now := time.Date(2026, 3, 6, 14, 0, 0, 0, time.UTC)
		sctx := b.Build(context.Background(), "d1", now, time.UTC, fridayTimes)
		if sctx.ApproachingPrayer || sctx.NextPrayer != "asr" {
			t.Errorf("got approaching=%v next=%q, want false asr", sctx.ApproachingPrayer, sctx.NextPrayer)
		}
	})

	t.Run("no prayer times", func(t *testing.T) {
		sctx := b.Build(context.Background(), "d1", midweek, nil, nil)
		if sctx.ApproachingPrayer || sctx.NextPrayer != "" {
			t.Errorf("unexpected prayer info %+v", sctx)
		}
		if sctx.DisplayUsage != models.UsageNormal || sctx.AudienceSize != models.AudienceMedium {
			t.Errorf("defaults = %s/%s", sctx.DisplayUsage, sctx.AudienceSize)
		}
	})

	t.Run("time zone", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		now := time.Date(2026, 3, 6, 9, 50, 0, 0, time.UTC) // 12:50 local
		sctx := b.Build(context.Background(), "d1", now, loc, fridayTimes)
		if !sctx.ApproachingPrayer || sctx.TimeOfDay != models.Midday {
			t.Errorf("got %+v, want approaching at midday local", sctx)
		}
	})
}

func TestContextBuilder_Analytics(t *testing.T) {
	busy := NewContextBuilder(StaticAnalytics{Usage: models.UsageHigh, Audience: models.AudienceLarge})
	sctx := busy.Build(context.Background(), "d1", midweek, time.UTC, nil)
	if sctx.DisplayUsage != models.UsageHigh || sctx.AudienceSize != models.AudienceLarge {
		t.Errorf("analytics not applied: %+v", sctx)
	}

	broken := NewContextBuilder(failingAnalytics{})
	sctx = broken.Build(context.Background(), "d1", midweek, time.UTC, nil)
	if sctx.DisplayUsage != models.UsageNormal || sctx.AudienceSize != models.AudienceMedium {
		t.Errorf("failing analytics should fall back to defaults: %+v", sctx)
	}
}
