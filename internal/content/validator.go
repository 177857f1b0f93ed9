// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
	"github.com/tomtom215/minbar/internal/validation"
)

// MaxRecommendedVideoSeconds is the duration above which a video gets a
// suggestion to shorten it.
const MaxRecommendedVideoSeconds = 300

// MinTextDescription is the description length below which text content
// gets a warning.
const MinTextDescription = 10

var (
	youtubePattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{6,})`)
	vimeoPattern   = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
	imagePattern   = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp|svg|bmp)(\?.*)?$`)
)

// Result is the outcome of validating one content item.
type Result struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (r *Result) fail(format string, args ...any) {
	r.IsValid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Validator checks content items before they are scheduled. It has no side
// effects.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a validator that uses now for date checks; nil means
// time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate inspects item.
func (v *Validator) Validate(item *models.ContentItem) Result {
	res := Result{IsValid: true}

	if strings.TrimSpace(item.ID) == "" {
		res.fail("content id is required")
	}
	if strings.TrimSpace(item.Title) == "" {
		res.fail("title is required")
	}
	if strings.TrimSpace(item.URL) == "" {
		res.fail("url is required")
	}
	if serr := validation.ValidateStruct(item); serr != nil {
		for _, fe := range serr.Fields {
			if fe.Tag == "required" {
				continue
			}
			res.fail("%s", fe.Message)
		}
	}

	switch item.Kind {
	case models.KindVideo:
		if item.URL != "" && !IsVideoURL(item.URL) {
			res.fail("video url must be a YouTube or Vimeo link")
		}
		if item.DisplayDuration > MaxRecommendedVideoSeconds {
			res.Suggestions = append(res.Suggestions,
				fmt.Sprintf("video runs %ds; consider a clip under %ds", item.DisplayDuration, MaxRecommendedVideoSeconds))
		}
	case models.KindImage:
		if item.URL != "" && !IsImageURL(item.URL) {
			res.fail("image url must point to a jpg, png, gif, webp, svg or bmp file")
		}
	case models.KindText:
		if len([]rune(strings.TrimSpace(item.Description))) < MinTextDescription {
			res.Warnings = append(res.Warnings, "text content has a very short description")
		}
	}

	now := v.now()
	if item.EndDate != nil && item.EndDate.Before(now) {
		res.fail("content expired on %s", item.EndDate.Format(time.RFC3339))
	}
	if item.StartDate != nil && item.StartDate.After(now) {
		res.fail("content is not yet scheduled; starts %s", item.StartDate.Format(time.RFC3339))
	}

	return res
}

// Filter splits items into valid and rejected, preserving order. Rejected
// items are counted.
func (v *Validator) Filter(items []models.ContentItem) (valid, rejected []models.ContentItem) {
	valid = make([]models.ContentItem, 0, len(items))
	for i := range items {
		if v.Validate(&items[i]).IsValid {
			valid = append(valid, items[i])
			continue
		}
		rejected = append(rejected, items[i])
	}
	if len(rejected) > 0 {
		metrics.ValidationRejections.Add(float64(len(rejected)))
	}
	return valid, rejected
}

// IsVideoURL reports whether u is a recognised YouTube or Vimeo link.
func IsVideoURL(u string) bool {
	return youtubePattern.MatchString(u) || vimeoPattern.MatchString(u)
}

// IsImageURL reports whether u names an image file or is an inline image.
func IsImageURL(u string) bool {
	return strings.HasPrefix(u, "data:image/") || imagePattern.MatchString(u)
}

// YouTubeID extracts the video id from a YouTube link.
func YouTubeID(u string) (string, bool) {
	m := youtubePattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// VimeoID extracts the numeric video id from a Vimeo link.
func VimeoID(u string) (string, bool) {
	m := vimeoPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}
