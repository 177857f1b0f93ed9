// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package config loads Minbar configuration with Koanf v2.
//
// Sources are layered with increasing precedence:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/minbar/config.yaml)
//  3. Environment variables mapped through envMappings
//
// Example YAML:
//
//	source:
//	  mode: rest
//	  url: https://backend.example.org
//	cache:
//	  content:
//	    ttl: 2m
//	    max_entries: 50
//	    persistent: true
//	queue:
//	  interval: 5s
//
// Durations accept Go duration strings ("30s", "5m"). Slice fields accept
// comma-separated values from the environment (CORS_ORIGINS, PREFETCH_DISPLAY_IDS).
package config
