// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// ChangeType is the kind of row change reported by the backend.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent notifies subscribers that a backend record changed.
type ChangeEvent struct {
	EventID   string          `json:"event_id"`
	Type      ChangeType      `json:"type"`
	Entity    string          `json:"entity"`
	RecordID  string          `json:"record_id"`
	DisplayID string          `json:"display_id,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
