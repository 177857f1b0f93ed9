// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package logging provides centralized zerolog-based structured logging for Minbar.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("display_id", id).Msg("Display content served")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Remote fetch failed, serving cached content")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Component Loggers
//
// Long-lived components receive a zerolog.Logger at construction and add a
// component field:
//
//	logger := logging.WithComponent("queue")
//
// # Adapters
//
// SlogHandler feeds slog records (suture supervisor events) into zerolog.
// NewWatermillLogger does the same for the change-feed pub/sub.
package logging
