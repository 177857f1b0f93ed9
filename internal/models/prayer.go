// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package models

import (
	"fmt"
	"time"
)

// DateLayout is the layout of PrayerTimes.Date.
const DateLayout = "2006-01-02"

// PrayerTimes holds one day's prayer schedule for a display. Times are
// local wall-clock "HH:MM" strings.
type PrayerTimes struct {
	DisplayID string `json:"display_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Fajr      string `json:"fajr" validate:"required,datetime=15:04"`
	Sunrise   string `json:"sunrise,omitempty" validate:"omitempty,datetime=15:04"`
	Dhuhr     string `json:"dhuhr" validate:"required,datetime=15:04"`
	Asr       string `json:"asr" validate:"required,datetime=15:04"`
	Maghrib   string `json:"maghrib" validate:"required,datetime=15:04"`
	Isha      string `json:"isha" validate:"required,datetime=15:04"`
	Jummah    string `json:"jummah,omitempty" validate:"omitempty,datetime=15:04"`
}

// PrayerInstant is a named prayer resolved to an absolute time.
type PrayerInstant struct {
	Name string
	At   time.Time
}

// Instants resolves the five daily prayers (and Jumu'ah on Fridays when set)
// to absolute times in loc, ordered by time. Entries that fail to parse are
// skipped.
func (p *PrayerTimes) Instants(loc *time.Location) ([]PrayerInstant, error) {
	day, err := time.ParseInLocation(DateLayout, p.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid prayer date %q: %w", p.Date, err)
	}

	named := []struct{ name, clock string }{
		{"fajr", p.Fajr},
		{"dhuhr", p.Dhuhr},
		{"asr", p.Asr},
		{"maghrib", p.Maghrib},
		{"isha", p.Isha},
	}
	if day.Weekday() == time.Friday && p.Jummah != "" {
		named[1] = struct{ name, clock string }{"jummah", p.Jummah}
	}

	out := make([]PrayerInstant, 0, len(named))
	for _, n := range named {
		clock, err := time.Parse("15:04", n.clock)
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		out = append(out, PrayerInstant{Name: n.name, At: at})
	}
	return out, nil
}
