// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

/*
Package schedule ranks content for a display.

The score of an item is the sum of:

	ln(sponsorship_amount + 1) * 10
	tier bonus             platinum 40, gold 30, silver 20, other 10
	freshness              max(0, 50 - 2 * age_in_days)
	rules                  weight * priority of every matching Rule
	performance            excellent +30, good +15, average 0, poor -20

Select sorts by score with a stable sort, so equal scores keep their input
order and identical inputs always give the same output.

The default rules favour Friday-congregation items on Fridays, prayer
related items when a prayer is less than 15 minutes away, items with an
engagement rate above 0.7 and items created in the last three days. Any
other rule set can be supplied with WithRules.
*/
package schedule
