// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestSlogHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))
	logger.Warn("service restarted",
		"service", "queue",
		"attempt", 3,
		"backoff", time.Second,
		"fatal", false,
		"err", errors.New("boom"),
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"queue"`,
		`"attempt":3`,
		`"fatal":false`,
		`"err":"boom"`,
		"service restarted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer Init(DefaultConfig())

	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf))).
		With("tree", "minbar").
		WithGroup("supervisor")
	logger.Info("event", "layer", "data", slog.Group("child", "name", "janitor"))

	out := buf.String()
	for _, want := range []string{
		`"supervisor.tree":"minbar"`,
		`"supervisor.layer":"data"`,
		`"supervisor.child.name":"janitor"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}

	h := NewSlogHandler()
	if h.WithGroup("") != h {
		t.Error("WithGroup(\"\") should return the same handler")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer Init(DefaultConfig())

	logger := NewWatermillLogger("changefeed")
	logger.Info("subscribed", watermill.LogFields{"topic": "minbar.changes.display_content"})

	out := buf.String()
	if !strings.Contains(out, `"component":"changefeed"`) {
		t.Errorf("expected component field: %s", out)
	}
	if !strings.Contains(out, "minbar.changes.display_content") {
		t.Errorf("expected topic in output: %s", out)
	}
}
