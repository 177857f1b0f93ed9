// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package services adapts the pipeline's long-running components to
// suture.Service: the HTTP server, the websocket hub, the queue driver, the
// cache janitor, the prefetch warmer and shutdown-only components.
package services
