// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package display is the content pipeline as seen by the screens.

Manager.GetDisplayContent runs one selection:

 1. read the first content page of the display through the data store,
    falling back to the cached page when the backend fails;
 2. drop items the validator rejects;
 3. when more items remain than requested, score them against the current
    scheduling context and keep the best;
 4. optimize the chosen items, record that they were shown and queue them
    for background processing.

The result is never nil. Watch keeps a display's selection current by
refetching whenever the backend reports a content change and passing the
new selection to a Notifier such as the websocket hub.
*/
package display
