// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/minbar/internal/models"
)

const maxBodyBytes = 1 << 20

// EnqueueRequest is the body of POST /api/v1/queue.
type EnqueueRequest struct {
	Item       models.ContentItem `json:"item" validate:"required"`
	Priority   string             `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	MaxRetries *int               `json:"max_retries,omitempty" validate:"omitempty,gte=0,lte=10"`
	TimeoutMs  int                `json:"timeout_ms,omitempty" validate:"gte=0,lte=600000"`
}

// Options converts the request into processing options, starting from defaults.
func (r *EnqueueRequest) Options(defaults models.ProcessingOptions) (models.ProcessingOptions, error) {
	opts := defaults
	if r.Priority != "" {
		p, err := models.ParsePriority(r.Priority)
		if err != nil {
			return opts, err
		}
		opts.Priority = p
	}
	if r.MaxRetries != nil {
		opts.MaxRetries = *r.MaxRetries
	}
	if r.TimeoutMs > 0 {
		opts.Timeout = time.Duration(r.TimeoutMs) * time.Millisecond
	}
	return opts, nil
}

// EngagementRequest is the body of POST /api/v1/content/{contentID}/engagement.
type EngagementRequest struct {
	Rate *float64 `json:"rate" validate:"required,gte=0,lte=1"`
}

// decodeBody reads at most maxBodyBytes of JSON into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// intParam parses an optional integer query parameter within [minVal, maxVal].
func intParam(r *http.Request, name string, def, minVal, maxVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < minVal || v > maxVal {
		return 0, fmt.Errorf("%s must be between %d and %d", name, minVal, maxVal)
	}
	return v, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}
