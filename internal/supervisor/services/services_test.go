// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/models"
	"github.com/tomtom215/minbar/internal/queue"
)

func TestServicesImplementSuture(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
	var _ suture.Service = (*WebSocketHubService)(nil)
	var _ suture.Service = (*QueueService)(nil)
	var _ suture.Service = (*CacheJanitorService)(nil)
	var _ suture.Service = (*PrefetchService)(nil)
	var _ suture.Service = (*ShutdownService)(nil)
}

// serveUntil runs svc, cancels after d and returns Serve's error.
func serveUntil(t *testing.T, svc suture.Service, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	time.Sleep(d)
	cancel()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
		return nil
	}
}

type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stop: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stop
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	if m.shutdowns.Add(1) == 1 {
		close(m.stop)
	}
	return m.shutdownErr
}

func TestHTTPServerService(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		srv := newMockHTTPServer()
		err := serveUntil(t, NewHTTPServerService(srv, time.Second), 20*time.Millisecond)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("shutdowns = %d", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		srv := newMockHTTPServer()
		srv.listenErr = errors.New("address in use")
		err := NewHTTPServerService(srv, 0).Serve(context.Background())
		if err == nil || !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve() = %v", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		srv := newMockHTTPServer()
		srv.shutdownErr = errors.New("stuck")
		err := serveUntil(t, NewHTTPServerService(srv, time.Second), 10*time.Millisecond)
		if !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Serve() = %v", err)
		}
	})

	if got := NewHTTPServerService(newMockHTTPServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

type mockHub struct{ runs atomic.Int32 }

func (m *mockHub) RunWithContext(ctx context.Context) error {
	m.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	hub := &mockHub{}
	if err := serveUntil(t, NewWebSocketHubService(hub), 10*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if hub.runs.Load() != 1 {
		t.Errorf("runs = %d", hub.runs.Load())
	}
}

func TestQueueServiceProcessesOneItemPerTick(t *testing.T) {
	q := queue.New(queue.DefaultDefaults(), time.Now)
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		if err := q.Enqueue(models.ContentItem{ID: id, Title: id}, q.Defaults().DefaultOptions()); err != nil {
			t.Fatal(err)
		}
	}

	var processed atomic.Int32
	driver := queue.NewDriver(q, queue.ProcessorFunc(func(context.Context, models.QueueItem) error {
		processed.Add(1)
		return nil
	}), logging.Nop())

	// A 50ms interval served for 75ms wakes exactly once.
	if err := serveUntil(t, NewQueueService(driver, 50*time.Millisecond, logging.Nop()), 75*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}

	if got := processed.Load(); got != 1 {
		t.Errorf("processed = %d after one wake, want 1", got)
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3 items left", q.Len())
	}
}

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeExpired() int {
	p.calls.Add(1)
	return 3
}

func TestCacheJanitorService(t *testing.T) {
	p := &countingPurger{}
	if err := serveUntil(t, NewCacheJanitorService(p, 10*time.Millisecond, logging.Nop()), 55*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if p.calls.Load() < 2 {
		t.Errorf("purges = %d, want at least 2", p.calls.Load())
	}
}

type recordingPrefetcher struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (p *recordingPrefetcher) Prefetch(ctx context.Context, id string) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("prefetch without deadline")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, id)
	if p.fail[id] {
		return errors.New("offline")
	}
	return nil
}

func TestPrefetchServiceWarmsOnStart(t *testing.T) {
	p := &recordingPrefetcher{fail: map[string]bool{"d1": true}}
	svc := NewPrefetchService(p, []string{"d1", "d2"}, time.Hour, logging.Nop())
	if err := serveUntil(t, svc, 20*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seen) != 2 || p.seen[0] != "d1" || p.seen[1] != "d2" {
		t.Errorf("prefetched %v; a failure must not stop the sweep", p.seen)
	}
}

type mockShutdowner struct {
	err   error
	calls atomic.Int32
}

func (m *mockShutdowner) Shutdown(ctx context.Context) error {
	m.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	return m.err
}

func TestShutdownService(t *testing.T) {
	c := &mockShutdowner{}
	svc := NewShutdownService("embedded-nats", c, time.Second)
	if err := serveUntil(t, svc, 5*time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if c.calls.Load() != 1 || svc.String() != "embedded-nats" {
		t.Errorf("calls = %d, name = %q", c.calls.Load(), svc.String())
	}

	failing := &mockShutdowner{err: errors.New("drain timeout")}
	if err := serveUntil(t, NewShutdownService("feed", failing, 0), 5*time.Millisecond); !errors.Is(err, failing.err) {
		t.Errorf("Serve() = %v", err)
	}
}
