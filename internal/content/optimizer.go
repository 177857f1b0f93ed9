// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package content

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/minbar/internal/models"
)

// MaxTextLength caps text descriptions shown on screen.
const MaxTextLength = 200

var blankLines = regexp.MustCompile(`\n{3,}`)

// Optimizer prepares selected items for display. It only works on copies.
type Optimizer struct {
	now func() time.Time
}

// NewOptimizer returns an optimizer; nil now means time.Now.
func NewOptimizer(now func() time.Time) *Optimizer {
	if now == nil {
		now = time.Now
	}
	return &Optimizer{now: now}
}

// Optimize returns optimized copies of items.
func (o *Optimizer) Optimize(items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, len(items))
	for i := range items {
		out[i] = o.OptimizeItem(items[i])
	}
	return out
}

// OptimizeItem returns an optimized copy of item.
func (o *Optimizer) OptimizeItem(item models.ContentItem) models.ContentItem {
	switch item.Kind {
	case models.KindVideo:
		if item.ThumbnailURL == "" {
			item.ThumbnailURL = Thumbnail(item.URL)
		}
	case models.KindText:
		item.Description = CleanText(item.Description)
	case models.KindImage:
		if item.URL != "" && !strings.HasPrefix(item.URL, "data:") {
			item.URL = cacheBust(item.URL, o.now())
		}
	}
	return item
}

// Thumbnail derives a thumbnail URL for a YouTube or Vimeo link, or returns
// "" when the link is neither.
func Thumbnail(videoURL string) string {
	if id, ok := YouTubeID(videoURL); ok {
		return "https://img.youtube.com/vi/" + id + "/hqdefault.jpg"
	}
	if id, ok := VimeoID(videoURL); ok {
		return "https://vumbnail.com/" + id + ".jpg"
	}
	return ""
}

// CleanText collapses runs of blank lines, trims and caps the length.
func CleanText(s string) string {
	s = strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
	r := []rune(s)
	if len(r) > MaxTextLength {
		return strings.TrimSpace(string(r[:MaxTextLength-3])) + "..."
	}
	return s
}

func cacheBust(u string, now time.Time) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "t=" + strconv.FormatInt(now.UnixMilli(), 10)
}
