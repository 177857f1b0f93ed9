// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
)

// Processor does the work for one queued item.
type Processor interface {
	Process(ctx context.Context, item models.QueueItem) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, item models.QueueItem) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, item models.QueueItem) error {
	return f(ctx, item)
}

// Outcome describes what one cycle did.
type Outcome string

const (
	OutcomeBusy      Outcome = "busy"
	OutcomeIdle      Outcome = "idle"
	OutcomeSucceeded Outcome = "success"
	OutcomeRetrying  Outcome = "retry"
	OutcomeDropped   Outcome = "dropped"
)

// Driver processes one queued item per cycle.
type Driver struct {
	queue     *Queue
	processor Processor
	logger    zerolog.Logger
	running   atomic.Bool
}

// NewDriver creates a driver for q.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDriver(q *Queue, p Processor, logger zerolog.Logger) *Driver {
	return &Driver{
		queue:     q,
		processor: p,
		logger:    logger.With().Str("component", "queue-driver").Logger(),
	}
}

// Running reports whether a cycle is in progress.
func (d *Driver) Running() bool {
	return d.running.Load()
}

// RunCycle processes at most one item. A call made while another cycle is
// still running returns OutcomeBusy without doing anything.
func (d *Driver) RunCycle(ctx context.Context) Outcome {
	if !d.running.CompareAndSwap(false, true) {
		return OutcomeBusy
	}
	defer d.running.Store(false)

	e, ok := d.queue.next()
	if !ok {
		return OutcomeIdle
	}

	item := e.item
	start := time.Now()
	err := d.process(ctx, item)
	elapsed := time.Since(start)

	if err == nil {
		d.queue.complete(e)
		metrics.RecordQueueAttempt(string(OutcomeSucceeded), elapsed)
		d.logger.Debug().
			Str("content_id", item.Item.ID).
			Str("priority", item.Options.Priority.String()).
			Dur("duration", elapsed).
			Msg("Processed queued item")
		return OutcomeSucceeded
	}

	retries, dropped := d.queue.fail(e)
	if dropped {
		metrics.RecordQueueAttempt(string(OutcomeDropped), elapsed)
		d.logger.Warn().
			Err(err).
			Str("content_id", item.Item.ID).
			Int("retries", retries).
			Msg("Dropping queued item after reaching retry limit")
		return OutcomeDropped
	}

	metrics.RecordQueueAttempt(string(OutcomeRetrying), elapsed)
	d.logger.Debug().
		Err(err).
		Str("content_id", item.Item.ID).
		Int("retries", retries).
		Int("max_retries", item.Options.MaxRetries).
		Msg("Queued item failed, will retry")
	return OutcomeRetrying
}

func (d *Driver) process(ctx context.Context, item models.QueueItem) (err error) {
	pctx, cancel := context.WithTimeout(ctx, item.Options.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	if err := d.processor.Process(pctx, item); err != nil {
		return err
	}
	return pctx.Err()
}
