// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/minbar/internal/metrics"
)

// RESTConfig configures a RESTSource.
type RESTConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// RESTSource talks to a PostgREST-style hosted backend:
//
//	GET  /rest/v1/<entity>?id=eq.<id>&limit=1
//	GET  /rest/v1/<entity>?<col>=eq.<v>&order=<col>.desc   Range: 0-49
//	POST /rest/v1/<entity>   Prefer: resolution=merge-duplicates,return=representation
type RESTSource struct {
	base    string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewRESTSource creates a REST client for the hosted backend.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRESTSource(cfg RESTConfig, logger zerolog.Logger) *RESTSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &RESTSource{
		base:   strings.TrimRight(cfg.BaseURL, "/") + "/rest/v1/",
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "rest-source").Logger(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// GetByID fetches a single row by id.
func (s *RESTSource) GetByID(ctx context.Context, entity, id string) (Record, error) {
	params := url.Values{}
	params.Set("id", "eq."+id)
	params.Set("limit", "1")

	rows, err := s.fetch(ctx, "get", entity, params, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// List fetches rows matching q.
func (s *RESTSource) List(ctx context.Context, entity string, q Query) ([]Record, error) {
	params := url.Values{}
	for col, v := range q.Filters {
		params.Set(col, "eq."+v)
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	return s.fetch(ctx, "list", entity, params, q.Range)
}

// Upsert inserts or merges rec.
func (s *RESTSource) Upsert(ctx context.Context, entity string, rec Record) (Record, error) {
	start := time.Now()
	rows, err := s.do(ctx, http.MethodPost, entity, nil, nil, rec)
	metrics.RecordSourceRequest("upsert", entity, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rec, nil
	}
	return rows[0], nil
}

func (s *RESTSource) fetch(ctx context.Context, op, entity string, params url.Values, rng *Range) ([]Record, error) {
	start := time.Now()
	rows, err := s.do(ctx, http.MethodGet, entity, params, rng, nil)
	metrics.RecordSourceRequest(op, entity, time.Since(start), err)
	return rows, err
}

func (s *RESTSource) do(ctx context.Context, method, entity string, params url.Values, rng *Range, body []byte) ([]Record, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrRemote, err)
		}
	}

	endpoint := s.base + url.PathEscape(entity)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrRemote, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if rng != nil {
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", rng.From, rng.To))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRemote, method, entity, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrRemote, err)
	}

	// 416 is returned when the requested range starts past the last row.
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		return []Record{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Debug().Int("status", resp.StatusCode).Str("entity", entity).Msg("Backend returned an error status")
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrRemote, method, entity, resp.StatusCode, truncate(payload, 200))
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return []Record{}, nil
	}

	var rows []Record
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %w", ErrRemote, entity, err)
	}
	return rows, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
