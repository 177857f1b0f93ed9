// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package models defines the data types shared across the display content
// pipeline: content items, displays, prayer times, scheduling context,
// per-item metrics, queue entries and change notifications.
//
// JSON tags follow the hosted backend's column names. validate tags are
// checked by internal/validation when records cross the data source
// boundary; semantic checks (expiry, locator shape) live in internal/content.
package models
