// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package datastore is the data access layer between the content pipeline and
the remote backend.

Reads go through three cache namespaces (displays, content, prayerTimes):

	display:<id>
	content:<displayID>:<page>:<pageSize>
	item:<contentID>
	prayer:<displayID>:<YYYY-MM-DD>

A cache hit returns without a remote call. A miss reads the backend and
caches the decoded record under the same key. A missing record is reported
as a nil value with a nil error. Other remote failures are returned wrapped
in ErrFetch; falling back to cached data is left to the caller (see
CachedContent).

Records are validated on the way in. A single invalid record fails with
ErrInvalidRecord; invalid rows in a listing are dropped and counted.

Writes go to the backend first and then into the cache, so a reader sees its
own write without another round trip.

SubscribeToChanges ties a source.ChangeNotifier to cache invalidation: any
change for a display drops its record, every cached content page and every
cached prayer-times date before the caller's callback runs.
*/
package datastore
