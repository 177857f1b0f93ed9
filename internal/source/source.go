// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"github.com/tomtom215/minbar/internal/models"
)

// Entities exposed by the hosted backend.
const (
	EntityDisplays    = "displays"
	EntityContent     = "display_content"
	EntityPrayerTimes = "prayer_times"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrRemote wraps transport and server failures of the remote backend.
	ErrRemote = errors.New("remote data source failure")
)

// Record is one backend row in its JSON form.
type Record = json.RawMessage

// Order sorts a listing by one column.
type Order struct {
	Column     string
	Descending bool
}

// Range selects rows From..To inclusive, zero based.
type Range struct {
	From int
	To   int
}

// Query narrows a listing. Filters are column equality matches.
type Query struct {
	Filters map[string]string
	Order   *Order
	Range   *Range
}

// DataSource is the remote backend that owns displays, content and prayer
// times.
type DataSource interface {
	// GetByID returns the record with the given id, or ErrNotFound.
	GetByID(ctx context.Context, entity, id string) (Record, error)
	// List returns the records matching q. An empty result is not an error.
	List(ctx context.Context, entity string, q Query) ([]Record, error)
	// Upsert inserts or replaces rec and returns the stored representation.
	Upsert(ctx context.Context, entity string, rec Record) (Record, error)
}

// Filter decides whether a change event reaches a subscriber. A nil Filter
// accepts everything.
type Filter func(models.ChangeEvent) bool

// Handle identifies a change subscription.
type Handle string

// ChangeNotifier delivers backend change events.
type ChangeNotifier interface {
	Subscribe(entity string, filter Filter, callback func(models.ChangeEvent)) (Handle, error)
	// Unsubscribe stops delivery. Unknown handles are ignored.
	Unsubscribe(h Handle) error
}

// MatchDisplay accepts events that belong to displayID.
func MatchDisplay(displayID string) Filter {
	return func(ev models.ChangeEvent) bool {
		return ev.DisplayID == displayID
	}
}

// MatchRecord accepts events about the record with the given id.
func MatchRecord(id string) Filter {
	return func(ev models.ChangeEvent) bool {
		return ev.RecordID == id
	}
}
