// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/queue"
)

// CycleRunner processes at most one queued item per call.
type CycleRunner interface {
	RunCycle(ctx context.Context) queue.Outcome
}

// QueueService drives the background processing queue on a fixed interval.
// A tick that finds the previous cycle still running is skipped by the
// driver itself.
type QueueService struct {
	runner   CycleRunner
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewQueueService creates the service. A non-positive interval means 1s.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewQueueService(runner CycleRunner, interval time.Duration, logger zerolog.Logger) *QueueService {
	if interval <= 0 {
		interval = time.Second
	}
	return &QueueService{
		runner:   runner,
		interval: interval,
		logger:   logger.With().Str("service", "queue").Logger(),
		name:     "queue-driver",
	}
}

// Serve implements suture.Service.
func (s *QueueService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("queue driver starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("queue driver shutting down")
			return ctx.Err()
		case <-ticker.C:
			// One item per wake.
			s.runner.RunCycle(ctx)
		}
	}
}

func (s *QueueService) String() string {
	return s.name
}
