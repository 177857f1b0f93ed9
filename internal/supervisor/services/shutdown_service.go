// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package services

import (
	"context"
	"time"
)

// Shutdowner is a component started outside the tree whose shutdown the
// supervisor owns, such as the embedded NATS server or the change feed.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ShutdownService waits for cancellation and then shuts its component down.
type ShutdownService struct {
	component       Shutdowner
	shutdownTimeout time.Duration
	name            string
}

// NewShutdownService wraps component under name.
func NewShutdownService(name string, component Shutdowner, shutdownTimeout time.Duration) *ShutdownService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &ShutdownService{component: component, shutdownTimeout: shutdownTimeout, name: name}
}

// Serve implements suture.Service.
func (s *ShutdownService) Serve(ctx context.Context) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.component.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *ShutdownService) String() string {
	return s.name
}
