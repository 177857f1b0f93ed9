// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package api is the HTTP surface used by the display-rendering layer.

Routes (all JSON responses use the {success, data, error, meta} envelope):

	GET    /api/v1/health
	GET    /metrics
	GET    /api/v1/displays/{displayID}/content?limit=&page_size=&skip_queue=&fresh=
	POST   /api/v1/displays/{displayID}/prefetch
	GET    /api/v1/displays/{displayID}/ws
	POST   /api/v1/queue
	GET    /api/v1/content/metrics
	GET    /api/v1/content/{contentID}/metrics
	POST   /api/v1/content/{contentID}/engagement
	GET    /api/v1/stats
	DELETE /api/v1/cache

Content selection never fails: a display with no reachable content gets an
empty list. Authentication is handled by the reverse proxy in front of the
service.
*/
package api
