// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package metrics declares the Prometheus collectors for Minbar.
//
// Collectors are registered with the default registry through promauto and
// exposed on /metrics by the API router. Covered areas:
//
//   - cache namespaces (entries, evictions, expirations, persistence errors)
//   - remote data source latency and errors, health, circuit breaker state
//   - change subscriptions and delivered change events
//   - content selection outcomes and validator rejections
//   - processing queue depth and attempt results
//   - HTTP API and websocket clients
package metrics
