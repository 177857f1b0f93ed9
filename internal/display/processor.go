// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package display

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/minbar/internal/content"
	"github.com/tomtom215/minbar/internal/models"
)

// ErrNoThumbnail is returned for videos whose link yields no thumbnail.
var ErrNoThumbnail = errors.New("no thumbnail available")

// Artifact is the derived output of background processing for one item.
type Artifact struct {
	ContentID    string    `json:"content_id"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Description  string    `json:"description,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// Artifacts stores processing results by content id.
type Artifacts struct {
	mu    sync.RWMutex
	items map[string]Artifact
}

// NewArtifacts creates an empty store.
func NewArtifacts() *Artifacts {
	return &Artifacts{items: make(map[string]Artifact)}
}

// Get returns the artifact for id.
func (a *Artifacts) Get(id string) (Artifact, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	art, ok := a.items[id]
	return art, ok
}

// Len returns the number of stored artifacts.
func (a *Artifacts) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

func (a *Artifacts) put(art Artifact) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[art.ContentID] = art
}

func (a *Artifacts) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = make(map[string]Artifact)
}

// OptimizationProcessor is the default queue processor. It derives video
// thumbnails and cleaned text for an item and records them as an Artifact.
// With a non-nil client, derived thumbnails are checked with a HEAD
// request before being accepted.
type OptimizationProcessor struct {
	optimizer *content.Optimizer
	client    *http.Client
	artifacts *Artifacts
	now       func() time.Time
}

// NewOptimizationProcessor creates a processor writing into artifacts.
func NewOptimizationProcessor(optimizer *content.Optimizer, artifacts *Artifacts, client *http.Client, now func() time.Time) *OptimizationProcessor {
	if now == nil {
		now = time.Now
	}
	return &OptimizationProcessor{optimizer: optimizer, client: client, artifacts: artifacts, now: now}
}

// Process implements queue.Processor.
func (p *OptimizationProcessor) Process(ctx context.Context, qi models.QueueItem) error {
	item := qi.Item
	art := Artifact{ContentID: item.ID}

	switch item.Kind {
	case models.KindVideo:
		thumb := item.ThumbnailURL
		if thumb == "" {
			thumb = content.Thumbnail(item.URL)
		}
		if thumb == "" {
			return fmt.Errorf("%w for %s", ErrNoThumbnail, item.URL)
		}
		if err := p.verify(ctx, thumb); err != nil {
			return err
		}
		art.ThumbnailURL = thumb
	case models.KindText:
		art.Description = content.CleanText(item.Description)
	default:
		opt := p.optimizer.OptimizeItem(item)
		art.ThumbnailURL = opt.ThumbnailURL
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	art.ProcessedAt = p.now()
	p.artifacts.put(art)
	return nil
}

func (p *OptimizationProcessor) verify(ctx context.Context, u string) error {
	if p.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return fmt.Errorf("build thumbnail check: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("check thumbnail %s: %w", u, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned %d", ErrNoThumbnail, u, resp.StatusCode)
	}
	return nil
}
