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

// ExpiredPurger drops expired cache entries and reports how many went.
type ExpiredPurger interface {
	PurgeExpired() int
}

// CacheJanitorService sweeps expired cache entries so idle namespaces do not
// hold stale data until the next read.
type CacheJanitorService struct {
	purger   ExpiredPurger
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewCacheJanitorService creates the service. A non-positive interval means 1m.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCacheJanitorService(purger ExpiredPurger, interval time.Duration, logger zerolog.Logger) *CacheJanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitorService{
		purger:   purger,
		interval: interval,
		logger:   logger.With().Str("service", "cache-janitor").Logger(),
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.purger.PurgeExpired(); n > 0 {
				s.logger.Debug().Int("purged", n).Msg("purged expired cache entries")
			}
		}
	}
}

func (s *CacheJanitorService) String() string {
	return s.name
}
