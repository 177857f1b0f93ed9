// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package models

import "time"

// TimeOfDay buckets the local hour for scheduling rules.
type TimeOfDay string

const (
	PreDawn    TimeOfDay = "pre-dawn"
	Morning    TimeOfDay = "morning"
	Midday     TimeOfDay = "midday"
	Afternoon  TimeOfDay = "afternoon"
	PostSunset TimeOfDay = "post-sunset"
	Night      TimeOfDay = "night"
)

// UsageLevel describes how busy a display currently is.
type UsageLevel string

const (
	UsageLow    UsageLevel = "low"
	UsageNormal UsageLevel = "normal"
	UsageHigh   UsageLevel = "high"
)

// AudienceSize is the estimated audience in front of a display.
type AudienceSize string

const (
	AudienceSmall  AudienceSize = "small"
	AudienceMedium AudienceSize = "medium"
	AudienceLarge  AudienceSize = "large"
)

// SchedulingContext is the environment a selection is made in.
type SchedulingContext struct {
	Now               time.Time    `json:"now"`
	DayOfWeek         time.Weekday `json:"day_of_week"`
	TimeOfDay         TimeOfDay    `json:"time_of_day"`
	ApproachingPrayer bool         `json:"approaching_prayer"`
	NextPrayer        string       `json:"next_prayer,omitempty"`
	DisplayUsage      UsageLevel   `json:"display_usage"`
	AudienceSize      AudienceSize `json:"audience_size"`
}
