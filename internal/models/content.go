// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package models

import "time"

// ContentKind is the media kind of a content item.
type ContentKind string

const (
	KindImage ContentKind = "image"
	KindVideo ContentKind = "video"
	KindText  ContentKind = "text"
	KindEvent ContentKind = "event"
)

// SponsorshipTier is the sponsor level attached to a content item.
type SponsorshipTier string

const (
	TierBronze   SponsorshipTier = "bronze"
	TierSilver   SponsorshipTier = "silver"
	TierGold     SponsorshipTier = "gold"
	TierPlatinum SponsorshipTier = "platinum"
)

// Rank orders tiers bronze < silver < gold < platinum. Unknown or empty
// tiers rank below bronze.
func (t SponsorshipTier) Rank() int {
	switch t {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	case TierPlatinum:
		return 4
	default:
		return 0
	}
}

// ContentItem is a single piece of content shown on a display.
type ContentItem struct {
	ID              string      `json:"id" validate:"required"`
	DisplayID       string      `json:"display_id,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Kind            ContentKind `json:"type" validate:"omitempty,oneof=image video text event"`
	URL             string      `json:"url"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty"`
	DisplayDuration int         `json:"duration" validate:"gte=0"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	SponsorshipAmount float64         `json:"sponsorship_amount" validate:"gte=0"`
	SponsorshipTier   SponsorshipTier `json:"sponsorship_tier,omitempty" validate:"omitempty,oneof=bronze silver gold platinum"`

	CreatedAt time.Time `json:"created_at"`
}

// AgeDays returns the whole and fractional days since creation.
func (c *ContentItem) AgeDays(now time.Time) float64 {
	if c.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(c.CreatedAt).Hours() / 24
}

// ContentPage is one page of a display's content listing.
type ContentPage struct {
	DisplayID string        `json:"display_id"`
	Page      int           `json:"page"`
	PageSize  int           `json:"page_size"`
	Items     []ContentItem `json:"items"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Display is a TV screen installed at a mosque.
type Display struct {
	ID                     string    `json:"id" validate:"required"`
	MosqueID               string    `json:"mosque_id,omitempty"`
	Name                   string    `json:"name"`
	Timezone               string    `json:"timezone,omitempty"`
	Orientation            string    `json:"orientation,omitempty" validate:"omitempty,oneof=landscape portrait"`
	ContentRotationSeconds int       `json:"content_rotation_seconds,omitempty" validate:"gte=0"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Location resolves the display's timezone, falling back to UTC.
func (d *Display) Location() *time.Location {
	if d == nil || d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
