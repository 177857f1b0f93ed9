// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package source connects Minbar to the hosted backend that owns displays,
display content and prayer times.

Two DataSource implementations are provided:

  - RESTSource speaks the PostgREST dialect of the hosted backend, with
    client-side rate limiting.
  - MemorySource keeps rows in process, for offline kiosks and tests.

BreakerSource wraps either one with a gobreaker circuit breaker so that an
unreachable backend fails fast and callers fall back to cached data.

Change notifications travel over a watermill message bus. ChangePublisher
emits a models.ChangeEvent on topic "minbar.changes.<entity>" and
ChangeFeed delivers them to ChangeNotifier subscribers. In production the
bus is core NATS (NewNATSSubscriber, NewNATSPublisher), optionally served by
an EmbeddedServer; tests use watermill's gochannel pub/sub.
*/
package source
