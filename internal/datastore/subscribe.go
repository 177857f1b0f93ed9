// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package datastore

import (
	"fmt"
	"sync"

	"github.com/tomtom215/minbar/internal/models"
	"github.com/tomtom215/minbar/internal/source"
)

// Kind selects what a change subscription watches.
type Kind string

const (
	// KindDisplay watches a display record; the key is the display id.
	KindDisplay Kind = "display"
	// KindContent watches a display's content; the key is the display id.
	KindContent Kind = "content"
	// KindPrayerTimes watches a display's prayer times; the key is the display id.
	KindPrayerTimes Kind = "prayer_times"
)

func (k Kind) entity() (string, error) {
	switch k {
	case KindDisplay:
		return source.EntityDisplays, nil
	case KindContent:
		return source.EntityContent, nil
	case KindPrayerTimes:
		return source.EntityPrayerTimes, nil
	default:
		return "", fmt.Errorf("unknown subscription kind %q", k)
	}
}

type subscription struct {
	id     string
	handle source.Handle
	once   sync.Once
	store  *Store
}

func (sub *subscription) cancel() {
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		if s.subs[sub.id] == sub {
			delete(s.subs, sub.id)
		}
		s.mu.Unlock()

		if err := s.notifier.Unsubscribe(sub.handle); err != nil {
			s.logger.Warn().Err(err).Str("subscription", sub.id).Msg("Failed to unsubscribe from changes")
		}
	})
}

// SubscribeToChanges watches kind for key. On every event the cache entries
// derived from the display are deleted, then callback runs with the event.
// Only one subscription per (kind, key) is kept: subscribing again replaces
// the previous one. The returned function unsubscribes and is safe to call
// more than once.
func (s *Store) SubscribeToChanges(kind Kind, key string, callback func(models.ChangeEvent)) (func(), error) {
	if s.notifier == nil {
		return func() {}, ErrNoNotifier
	}
	entity, err := kind.entity()
	if err != nil {
		return func() {}, err
	}

	filter := source.MatchDisplay(key)
	if kind == KindDisplay {
		filter = source.MatchRecord(key)
	}

	id := string(kind) + ":" + key
	s.mu.Lock()
	old := s.subs[id]
	s.mu.Unlock()
	if old != nil {
		old.cancel()
	}

	handle, err := s.notifier.Subscribe(entity, filter, func(ev models.ChangeEvent) {
		s.invalidateDisplay(key, ev)
		if callback != nil {
			callback(ev)
		}
	})
	if err != nil {
		return func() {}, fmt.Errorf("subscribe to %s changes for %s: %w", kind, key, err)
	}

	sub := &subscription{id: id, handle: handle, store: s}
	s.mu.Lock()
	replaced := s.subs[id]
	s.subs[id] = sub
	s.mu.Unlock()
	if replaced != nil {
		replaced.cancel()
	}

	return sub.cancel, nil
}

// Subscriptions returns the number of active change subscriptions.
func (s *Store) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) invalidateDisplay(displayID string, ev models.ChangeEvent) {
	dropped := 0
	if s.displays.Delete(displayKey(displayID)) {
		dropped++
	}
	dropped += s.content.DeleteFunc(hasPrefix(contentPagePrefix(displayID)))
	dropped += s.prayers.DeleteFunc(hasPrefix(prayerPrefix(displayID)))
	if ev.Entity == source.EntityContent && ev.RecordID != "" {
		if s.content.Delete(contentItemKey(ev.RecordID)) {
			dropped++
		}
	}

	s.logger.Debug().
		Str("display_id", displayID).
		Str("entity", ev.Entity).
		Str("type", string(ev.Type)).
		Int("dropped", dropped).
		Msg("Invalidated cache after change")
}
