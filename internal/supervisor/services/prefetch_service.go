// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Prefetcher warms the caches of one display.
type Prefetcher interface {
	Prefetch(ctx context.Context, displayID string) error
}

// PrefetchService warms the configured displays on startup and then on a
// fixed interval, so kiosks keep working from cache through short outages.
type PrefetchService struct {
	prefetcher Prefetcher
	displayIDs []string
	interval   time.Duration
	timeout    time.Duration
	logger     zerolog.Logger
	name       string
}

// NewPrefetchService creates the service. A non-positive interval means 5m.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPrefetchService(p Prefetcher, displayIDs []string, interval time.Duration, logger zerolog.Logger) *PrefetchService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PrefetchService{
		prefetcher: p,
		displayIDs: displayIDs,
		interval:   interval,
		timeout:    30 * time.Second,
		logger:     logger.With().Str("service", "prefetch").Logger(),
		name:       "prefetch-warmer",
	}
}

// Serve implements suture.Service.
func (s *PrefetchService) Serve(ctx context.Context) error {
	s.logger.Info().Int("displays", len(s.displayIDs)).Dur("interval", s.interval).Msg("prefetch warmer starting")
	s.warm(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.warm(ctx)
		}
	}
}

func (s *PrefetchService) warm(ctx context.Context) {
	for _, id := range s.displayIDs {
		if ctx.Err() != nil {
			return
		}
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.prefetcher.Prefetch(pctx, id)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("display_id", id).Msg("prefetch failed")
			continue
		}
		s.logger.Debug().Str("display_id", id).Msg("prefetched display")
	}
}

func (s *PrefetchService) String() string {
	return s.name
}
