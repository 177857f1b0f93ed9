// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/minbar/internal/logging"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *RESTSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTSource(RESTConfig{BaseURL: srv.URL + "/", APIKey: "anon-key", Timeout: 2 * time.Second}, logging.Nop())
}

func TestRESTSource_GetByID(t *testing.T) {
	src := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/displays" {
			t.Errorf("path = %s, want /rest/v1/displays", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.d1" {
			t.Errorf("id filter = %q, want eq.d1", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("Authorization header = %q", got)
		}
		if r.URL.Query().Get("id") == "eq.missing" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"d1","name":"Main hall"}]`)
	})

	rec, err := src.GetByID(context.Background(), EntityDisplays, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if string(rec) != `{"id":"d1","name":"Main hall"}` {
		t.Errorf("GetByID() = %s", rec)
	}
}

func TestRESTSource_GetByIDNotFound(t *testing.T) {
	src := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	if _, err := src.GetByID(context.Background(), EntityDisplays, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestRESTSource_List(t *testing.T) {
	src := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("display_id") != "eq.d1" {
			t.Errorf("display_id filter = %q", q.Get("display_id"))
		}
		if q.Get("order") != "created_at.desc" {
			t.Errorf("order = %q", q.Get("order"))
		}
		if r.Header.Get("Range") != "50-99" {
			t.Errorf("Range = %q, want 50-99", r.Header.Get("Range"))
		}
		_, _ = io.WriteString(w, `[{"id":"c1"},{"id":"c2"}]`)
	})

	rows, err := src.List(context.Background(), EntityContent, Query{
		Filters: map[string]string{"display_id": "d1"},
		Order:   &Order{Column: "created_at", Descending: true},
		Range:   &Range{From: 50, To: 99},
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("List() = %d rows, want 2", len(rows))
	}
}

func TestRESTSource_RangeNotSatisfiable(t *testing.T) {
	src := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	})
	rows, err := src.List(context.Background(), EntityContent, Query{Range: &Range{From: 100, To: 149}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("List() = %d rows, want 0", len(rows))
	}
}

func TestRESTSource_Upsert(t *testing.T) {
	src := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Prefer"); got != "resolution=merge-duplicates,return=representation" {
			t.Errorf("Prefer = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("[" + string(body) + "]"))
	})

	out, err := src.Upsert(context.Background(), EntityContent, Record(`{"id":"c1"}`))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if string(out) != `{"id":"c1"}` {
		t.Errorf("Upsert() = %s", out)
	}
}

func TestRESTSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{not json`)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestREST(t, tt.handler)
			if _, err := src.List(context.Background(), EntityContent, Query{}); !errors.Is(err, ErrRemote) {
				t.Errorf("List() error = %v, want ErrRemote", err)
			}
		})
	}
}

func TestRESTSource_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()
	src := NewRESTSource(RESTConfig{BaseURL: srv.URL, RateLimit: 1, Burst: 1}, logging.Nop())

	ctx := context.Background()
	if _, err := src.List(ctx, EntityContent, Query{}); err != nil {
		t.Fatalf("first List() error = %v", err)
	}
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := src.List(short, EntityContent, Query{}); !errors.Is(err, ErrRemote) {
		t.Errorf("second List() error = %v, want rate limiter rejection", err)
	}
}
