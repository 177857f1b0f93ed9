// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package queue runs expensive per-item work (thumbnail generation and
similar) off the selection path.

Each item moves through:

	enqueued -> processing -> done (removed)
	                       -> retrying (back to enqueued, Retries+1)
	                       -> abandoned (removed and logged at warn)

Driver.RunCycle handles one item per call. It prefers the highest priority
item at "high" or above, earliest first, and otherwise takes the oldest
item. A cycle started while another is running returns immediately, so a
slow processor never causes an item to be handled twice. The periodic
caller lives in supervisor/services.
*/
package queue
