// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package websocket pushes live updates to the TV displays.

Each connected display runs one Client. The Hub keeps the client set and
routes messages either to the clients of one display or to all of them. It
implements display.Notifier, so a watched display receives a content_updated
message carrying its new selection as soon as the backend reports a change.

Each client has two goroutines:
  - readPump: reads from the socket and answers application pings
  - writePump: writes hub messages and keepalive pings

Message types:

	content_updated   {display_id, items, count, timestamp}
	cache_cleared     sent to every client after an operator clears the cache
	prefetched        {display_id, timestamp} sent to one display after a prefetch
	ping / pong       application-level keepalive

Slow clients whose send buffer is full are disconnected; the display
reconnects and fetches content over HTTP.
*/
package websocket
