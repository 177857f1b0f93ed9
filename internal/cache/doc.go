// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

// Package cache provides the namespaced TTL/LRU cache that keeps displays
// working while the hosted backend is slow or unreachable.
//
// Each Namespace has its own TTL and entry ceiling. Lookups never return an
// expired entry. When a new key arrives at the ceiling, exactly the least
// recently accessed entry is evicted. Persistent namespaces rewrite their
// whole content to a Persister after every mutation and reload unexpired
// entries on construction, so a rebooted display comes back with content.
//
// Default namespaces used by the data access layer:
//
//	displays      5m   10 entries  persistent
//	content       2m   50 entries  persistent
//	prayerTimes   24h  30 entries  persistent
//
// Persisted format, one record per entry under StorageKey(namespace):
//
//	[{"cacheKey":"content:content:d1:0:50","data":{...},"timestamp":1760000000000,
//	  "expiresAt":1760000120000,"key":"content:d1:0:50"}]
//
// Persistence failures are logged and counted, never returned: the cache
// keeps serving from memory.
package cache
