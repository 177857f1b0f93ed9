// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package content validates content items before scheduling and prepares
// the selected ones for the screen (video thumbnails, text cleanup, image
// cache busting).
package content
