// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package display

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/minbar/internal/datastore"
	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/models"
	"github.com/tomtom215/minbar/internal/queue"
	"github.com/tomtom215/minbar/internal/source"
)

// Friday 6 March 2026, 12:50 UTC: ten minutes before Jumu'ah.
var fridayNoon = time.Date(2026, 3, 6, 12, 50, 0, 0, time.UTC)

func fixedClock() time.Time { return fridayNoon }

func old(days int) time.Time { return fridayNoon.AddDate(0, 0, -days) }

type fixture struct {
	src     *source.MemorySource
	store   *datastore.Store
	manager *Manager
}

func newFixture(t *testing.T, items []models.ContentItem, opts ...Option) *fixture {
	t.Helper()
	src := source.NewMemorySource()
	if err := src.Seed(source.EntityDisplays, models.Display{ID: "d1", Name: "Main hall", Timezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	if err := src.Seed(source.EntityPrayerTimes, models.PrayerTimes{
		DisplayID: "d1", Date: "2026-03-06", Fajr: "05:10", Dhuhr: "12:30", Asr: "15:45", Maghrib: "18:05", Isha: "19:30", Jummah: "13:00",
	}); err != nil {
		t.Fatal(err)
	}
	rows := make([]any, len(items))
	for i := range items {
		rows[i] = items[i]
	}
	if err := src.Seed(source.EntityContent, rows...); err != nil {
		t.Fatal(err)
	}

	store := datastore.New(src, datastore.DefaultConfig(), datastore.WithClock(fixedClock), datastore.WithLogger(logging.Nop()))
	opts = append([]Option{WithClock(fixedClock), WithLogger(logging.Nop())}, opts...)
	m := New(store, DefaultConfig(), opts...)
	t.Cleanup(m.Cleanup)
	return &fixture{src: src, store: store, manager: m}
}

func textItem(id, title string, created time.Time) models.ContentItem {
	return models.ContentItem{
		ID: id, DisplayID: "d1", Title: title, Kind: models.KindText,
		URL: "text:" + id, Description: "Announcement for " + title, CreatedAt: created,
	}
}

func idsOf(items []models.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestGetDisplayContent_UnderLimit(t *testing.T) {
	f := newFixture(t, []models.ContentItem{
		textItem("a", "Quran class", old(1)),
		textItem("b", "Bake sale", old(2)),
		{ID: "bad", DisplayID: "d1", Title: "Broken video", Kind: models.KindVideo, URL: "https://example.org/x.mp4", CreatedAt: old(0)},
	})

	got := f.manager.GetDisplayContent(context.Background(), "d1", 5, Options{})
	if strings.Join(idsOf(got), ",") != "a,b" {
		t.Errorf("GetDisplayContent() = %v, want [a b] in source order", idsOf(got))
	}
}

func TestGetDisplayContent_SelectsBest(t *testing.T) {
	platinum := textItem("sponsor", "Community fund", old(40))
	platinum.SponsorshipTier = models.TierPlatinum
	platinum.SponsorshipAmount = 500

	f := newFixture(t, []models.ContentItem{
		textItem("stale-1", "Parking notice", old(40)),
		textItem("jumuah", "Jumu'ah khutbah topic", old(40)),
		platinum,
		textItem("stale-2", "Lost and found", old(40)),
	})

	got := f.manager.GetDisplayContent(context.Background(), "d1", 2, Options{})
	if strings.Join(idsOf(got), ",") != "sponsor,jumuah" {
		t.Errorf("GetDisplayContent() = %v, want [sponsor jumuah]", idsOf(got))
	}
}

func TestGetDisplayContent_NeverNil(t *testing.T) {
	f := newFixture(t, nil)
	got := f.manager.GetDisplayContent(context.Background(), "d1", 5, Options{})
	if got == nil || len(got) != 0 {
		t.Errorf("GetDisplayContent() = %#v, want empty slice", got)
	}

	f.src.SetFailure(errors.New("offline"))
	got = f.manager.GetDisplayContent(context.Background(), "unknown", 5, Options{})
	if got == nil || len(got) != 0 {
		t.Errorf("GetDisplayContent() while offline = %#v, want empty slice", got)
	}
	if s := f.manager.GetStats().Selections; s.Empty != 2 {
		t.Errorf("empty selections = %d, want 2", s.Empty)
	}
}

func TestGetDisplayContent_FallsBackToCache(t *testing.T) {
	f := newFixture(t, []models.ContentItem{textItem("a", "Quran class", old(1))})
	ctx := context.Background()

	if got := f.manager.GetDisplayContent(ctx, "d1", 5, Options{}); len(got) != 1 {
		t.Fatalf("warm-up returned %d items", len(got))
	}
	f.src.SetFailure(errors.New("backend down"))

	got := f.manager.GetDisplayContent(ctx, "d1", 5, Options{Fresh: true})
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("GetDisplayContent() = %v, want cached [a]", idsOf(got))
	}
	if s := f.manager.GetStats().Selections; s.CachedFallback != 1 || s.Fresh != 1 {
		t.Errorf("selection stats = %+v", s)
	}
}

func TestGetDisplayContent_QueueAndMetrics(t *testing.T) {
	f := newFixture(t, []models.ContentItem{
		textItem("a", "Quran class", old(1)),
		{ID: "v", DisplayID: "d1", Title: "Reminder", Kind: models.KindVideo, URL: "https://youtu.be/dQw4w9WgXcQ", DisplayDuration: 20, CreatedAt: old(1)},
	})
	ctx := context.Background()

	f.manager.GetDisplayContent(ctx, "d1", 5, Options{SkipQueue: true})
	if depth := f.manager.GetStats().QueueDepth; depth != 0 {
		t.Errorf("queue depth with SkipQueue = %d", depth)
	}

	got := f.manager.GetDisplayContent(ctx, "d1", 5, Options{})
	if depth := f.manager.GetStats().QueueDepth; depth != 2 {
		t.Errorf("queue depth = %d, want 2", depth)
	}
	for _, it := range got {
		if it.ID == "v" && it.ThumbnailURL != "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
			t.Errorf("video thumbnail = %q", it.ThumbnailURL)
		}
	}

	m, ok := f.manager.GetContentMetrics("v")
	if !ok || m.ViewCount != 2 || m.TotalDisplayTime != 40 || !m.LastShown.Equal(fridayNoon) {
		t.Errorf("metrics = %+v, %v", m, ok)
	}
	if len(f.manager.AllContentMetrics()) != 2 {
		t.Errorf("AllContentMetrics() = %d entries", len(f.manager.AllContentMetrics()))
	}

	for i := 0; i < 2; i++ {
		if out := f.manager.Driver().RunCycle(ctx); out != queue.OutcomeSucceeded {
			t.Fatalf("cycle %d outcome = %s", i, out)
		}
	}
	if art, ok := f.manager.Artifact("v"); !ok || art.ThumbnailURL == "" {
		t.Errorf("video artifact = %+v, %v", art, ok)
	}
	if art, ok := f.manager.Artifact("a"); !ok || art.Description != "Announcement for Quran class" {
		t.Errorf("text artifact = %+v, %v", art, ok)
	}
}

func TestRecordEngagementAffectsRanking(t *testing.T) {
	f := newFixture(t, []models.ContentItem{
		textItem("x", "Parking notice", old(40)),
		textItem("y", "Lost and found", old(40)),
	})
	if err := f.manager.RecordEngagement("y", 0.95); err != nil {
		t.Fatal(err)
	}
	if err := f.manager.RecordEngagement("x", 0.1); err != nil {
		t.Fatal(err)
	}
	got := f.manager.GetDisplayContent(context.Background(), "d1", 1, Options{SkipQueue: true})
	if len(got) != 1 || got[0].ID != "y" {
		t.Errorf("GetDisplayContent() = %v, want [y]", idsOf(got))
	}
	if err := f.manager.RecordEngagement("y", 2); err == nil {
		t.Error("out of range engagement accepted")
	}
}

func TestAddToQueueAndCleanup(t *testing.T) {
	f := newFixture(t, nil)
	item := textItem("q", "Queued", old(0))
	if err := f.manager.AddToQueue(item, f.manager.DefaultProcessingOptions()); err != nil {
		t.Fatal(err)
	}
	if f.manager.GetStats().QueueDepth != 1 {
		t.Error("item not queued")
	}

	f.manager.Cleanup()
	if err := f.manager.AddToQueue(item, models.ProcessingOptions{}); !errors.Is(err, queue.ErrQueueClosed) {
		t.Errorf("AddToQueue after Cleanup error = %v", err)
	}
}

func TestClearCache(t *testing.T) {
	f := newFixture(t, []models.ContentItem{textItem("a", "Quran class", old(1))})
	f.manager.GetDisplayContent(context.Background(), "d1", 5, Options{})
	f.manager.ClearCache()
	for _, st := range f.manager.GetStats().Cache {
		if st.Size != 0 {
			t.Errorf("%s not cleared: %d", st.Name, st.Size)
		}
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates map[string][][]string
	signal  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{updates: make(map[string][][]string), signal: make(chan struct{}, 8)}
}

func (n *recordingNotifier) NotifyContentUpdated(displayID string, items []models.ContentItem) {
	n.mu.Lock()
	n.updates[displayID] = append(n.updates[displayID], idsOf(items))
	n.mu.Unlock()
	n.signal <- struct{}{}
}

func TestWatch(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })
	feed := source.NewChangeFeed(bus, logging.Nop())
	t.Cleanup(func() { _ = feed.Close() })

	src := source.NewMemorySource()
	src.SetChangeSink(source.NewChangePublisher(bus))
	if err := src.Seed(source.EntityContent, textItem("a", "Quran class", old(1))); err != nil {
		t.Fatal(err)
	}
	store := datastore.New(src, datastore.DefaultConfig(), datastore.WithNotifier(feed), datastore.WithClock(fixedClock), datastore.WithLogger(logging.Nop()))
	notifier := newRecordingNotifier()
	m := New(store, DefaultConfig(), WithNotifier(notifier), WithClock(fixedClock), WithLogger(logging.Nop()))
	t.Cleanup(m.Cleanup)

	stop, err := m.Watch("d1")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if !m.Watching("d1") || m.GetStats().Watches != 1 {
		t.Fatal("watch not registered")
	}

	if _, err := src.Upsert(context.Background(), source.EntityContent,
		source.Record(`{"id":"b","display_id":"d1","title":"Iftar tonight","type":"text","url":"text:b","description":"Iftar after Maghrib"}`)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-notifier.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier not called")
	}
	notifier.mu.Lock()
	got := notifier.updates["d1"][0]
	notifier.mu.Unlock()
	if strings.Join(got, ",") != "a,b" && strings.Join(got, ",") != "b,a" {
		t.Errorf("notified items = %v, want a and b", got)
	}

	stop()
	stop()
	if m.Watching("d1") || store.Subscriptions() != 0 {
		t.Error("watch still active after stop")
	}
}

func TestWatchWithoutNotifications(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.manager.Watch("d1"); !errors.Is(err, datastore.ErrNoNotifier) {
		t.Errorf("Watch() error = %v, want ErrNoNotifier", err)
	}
}
