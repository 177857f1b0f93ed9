// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package display

import (
	"context"
	"fmt"

	"github.com/tomtom215/minbar/internal/datastore"
	"github.com/tomtom215/minbar/internal/models"
)

// Watch refetches displayID's content whenever it changes and passes the
// new selection to the Notifier. Watching an already watched display
// replaces the previous watch. The returned function stops watching.
func (m *Manager) Watch(displayID string) (func(), error) {
	unsubscribe, err := m.store.SubscribeToChanges(datastore.KindContent, displayID, func(ev models.ChangeEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.WatchTimeout)
		defer cancel()

		items := m.GetDisplayContent(ctx, displayID, m.cfg.DefaultLimit, Options{SkipQueue: true, Fresh: true})
		m.logger.Debug().
			Str("display_id", displayID).
			Str("record_id", ev.RecordID).
			Int("items", len(items)).
			Msg("Refetched content after change")
		if m.notifier != nil {
			m.notifier.NotifyContentUpdated(displayID, items)
		}
	})
	if err != nil {
		return func() {}, fmt.Errorf("watch display %s: %w", displayID, err)
	}

	w := &watch{stop: unsubscribe}
	m.mu.Lock()
	m.watches[displayID] = w
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		if m.watches[displayID] == w {
			delete(m.watches, displayID)
		}
		m.mu.Unlock()
		unsubscribe()
	}, nil
}

type watch struct {
	stop func()
}

// Watching reports whether displayID is watched.
func (m *Manager) Watching(displayID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watches[displayID]
	return ok
}
