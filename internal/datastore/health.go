// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package datastore

import (
	"context"
	"time"

	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/source"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health is the result of a backend health check.
type Health struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

// HealthCheck issues a one-row read against the remote source.
func (s *Store) HealthCheck(ctx context.Context) Health {
	start := time.Now()
	_, err := s.src.List(ctx, source.EntityDisplays, source.Query{Range: &source.Range{From: 0, To: 0}})
	latency := time.Since(start)

	h := Health{
		Status: StatusHealthy,
		Details: map[string]any{
			"latency_ms":    latency.Milliseconds(),
			"checked_at":    s.now().UTC(),
			"subscriptions": s.Subscriptions(),
		},
	}
	switch {
	case err != nil:
		h.Status = StatusUnhealthy
		h.Details["error"] = err.Error()
	case latency > s.cfg.DegradedOver:
		h.Status = StatusDegraded
	}

	metrics.SetHealthStatus(h.Status)
	return h
}
