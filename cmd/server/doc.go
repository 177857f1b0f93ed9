// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package main is the entry point for the Minbar server.

Minbar feeds mosque TV displays. It reads displays, announcements and prayer
times from a hosted backend and caches them so screens keep working through
outages. Selected items are pushed to the screens over WebSocket.

# Application Architecture

Services run under a Suture v4 supervision tree:

	RootSupervisor ("minbar")
	├── DataSupervisor ("data-layer")
	│   ├── Cache janitor (expired entry sweep)
	│   ├── Prefetch (optional, warms configured displays)
	│   └── Change bus shutdown (feed, publisher, embedded NATS)
	├── ProcessingSupervisor ("processing-layer")
	│   ├── WebSocket Hub (display push)
	│   └── Queue driver (thumbnail and text processing)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog with JSON or console output
 3. Change bus: NATS (external or embedded) or an in-process channel
 4. Source: REST backend behind a circuit breaker, or in-memory
 5. Cache persistence: BadgerDB or memory
 6. Data store, display manager and WebSocket hub
 7. HTTP Server: Chi router with CORS, rate limiting and metrics

# Configuration

Configuration is loaded via Koanf v2 (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	SOURCE_MODE=rest             # rest or memory
	SOURCE_URL=https://...       # hosted backend, required for rest
	SOURCE_API_KEY=...
	SOURCE_SEED_FILE=seed.json   # memory mode only
	STORAGE_BACKEND=badger       # badger or memory
	STORAGE_PATH=/data/cache
	NATS_ENABLED=false
	NATS_EMBEDDED=true
	PREFETCH_ENABLED=false
	PREFETCH_DISPLAY_IDS=lobby,hall
	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json

CONFIG_PATH points at a YAML file; config.yaml in the working directory is
used when present.

# Signal Handling

SIGINT and SIGTERM cancel the root context. Every service stops with it and
cache persistence is closed last.
*/
package main
