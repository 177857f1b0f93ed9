// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/metrics"
)

// BreakerConfig tunes BreakerSource.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig opens after 60% failures over at least 10 requests
// and retries after two minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "remote-source",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerSource wraps a DataSource with a circuit breaker. While the circuit
// is open calls fail fast with gobreaker.ErrOpenState wrapped in ErrRemote,
// which lets callers fall back to cached data without waiting on timeouts.
type BreakerSource struct {
	inner DataSource
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreakerSource wraps inner.
func NewBreakerSource(inner DataSource, cfg BreakerConfig) *BreakerSource {
	name := cfg.Name
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// A missing record is a healthy answer from the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &BreakerSource{inner: inner, cb: cb, name: name}
}

// State returns the current breaker state name.
func (b *BreakerSource) State() string {
	return b.cb.State().String()
}

func (b *BreakerSource) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return nil, errors.Join(ErrRemote, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// GetByID forwards to the wrapped source.
func (b *BreakerSource) GetByID(ctx context.Context, entity, id string) (Record, error) {
	res, err := b.execute(func() (any, error) {
		return b.inner.GetByID(ctx, entity, id)
	})
	if err != nil {
		return nil, err
	}
	rec, _ := res.(Record)
	return rec, nil
}

// List forwards to the wrapped source.
func (b *BreakerSource) List(ctx context.Context, entity string, q Query) ([]Record, error) {
	res, err := b.execute(func() (any, error) {
		return b.inner.List(ctx, entity, q)
	})
	if err != nil {
		return nil, err
	}
	rows, _ := res.([]Record)
	return rows, nil
}

// Upsert forwards to the wrapped source.
func (b *BreakerSource) Upsert(ctx context.Context, entity string, rec Record) (Record, error) {
	res, err := b.execute(func() (any, error) {
		return b.inner.Upsert(ctx, entity, rec)
	})
	if err != nil {
		return nil, err
	}
	out, _ := res.(Record)
	return out, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
