// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Cache.Displays.TTL != 5*time.Minute {
		t.Errorf("Cache.Displays.TTL = %v, want 5m", cfg.Cache.Displays.TTL)
	}
	if cfg.Cache.Displays.MaxEntries != 10 {
		t.Errorf("Cache.Displays.MaxEntries = %d, want 10", cfg.Cache.Displays.MaxEntries)
	}
	if cfg.Cache.Content.TTL != 2*time.Minute {
		t.Errorf("Cache.Content.TTL = %v, want 2m", cfg.Cache.Content.TTL)
	}
	if cfg.Cache.Content.MaxEntries != 50 {
		t.Errorf("Cache.Content.MaxEntries = %d, want 50", cfg.Cache.Content.MaxEntries)
	}
	if cfg.Cache.PrayerTimes.TTL != 24*time.Hour {
		t.Errorf("Cache.PrayerTimes.TTL = %v, want 24h", cfg.Cache.PrayerTimes.TTL)
	}
	if cfg.Cache.PrayerTimes.MaxEntries != 30 {
		t.Errorf("Cache.PrayerTimes.MaxEntries = %d, want 30", cfg.Cache.PrayerTimes.MaxEntries)
	}
	if !cfg.Cache.Content.Persistent {
		t.Error("Cache.Content.Persistent should default to true")
	}
	if cfg.Queue.Interval != 5*time.Second {
		t.Errorf("Queue.Interval = %v, want 5s", cfg.Queue.Interval)
	}
	if cfg.Queue.DefaultMaxRetries != 3 {
		t.Errorf("Queue.DefaultMaxRetries = %d, want 3", cfg.Queue.DefaultMaxRetries)
	}
	if cfg.Queue.DefaultTimeout != 30*time.Second {
		t.Errorf("Queue.DefaultTimeout = %v, want 30s", cfg.Queue.DefaultTimeout)
	}
	if cfg.Content.HealthDegradedOver != time.Second {
		t.Errorf("Content.HealthDegradedOver = %v, want 1s", cfg.Content.HealthDegradedOver)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SOURCE_URL", "https://backend.example.org")
	t.Setenv("QUEUE_INTERVAL", "10s")
	t.Setenv("CACHE_CONTENT_MAX", "5")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("PREFETCH_DISPLAY_IDS", "lobby, hall ,")
	t.Setenv("SOME_UNRELATED_VAR", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.URL != "https://backend.example.org" {
		t.Errorf("Source.URL = %q", cfg.Source.URL)
	}
	if cfg.Queue.Interval != 10*time.Second {
		t.Errorf("Queue.Interval = %v, want 10s", cfg.Queue.Interval)
	}
	if cfg.Cache.Content.MaxEntries != 5 {
		t.Errorf("Cache.Content.MaxEntries = %d, want 5", cfg.Cache.Content.MaxEntries)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Prefetch.DisplayIDs) != 2 || cfg.Prefetch.DisplayIDs[0] != "lobby" || cfg.Prefetch.DisplayIDs[1] != "hall" {
		t.Errorf("Prefetch.DisplayIDs = %v, want [lobby hall]", cfg.Prefetch.DisplayIDs)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source:
  mode: memory
storage:
  backend: memory
cache:
  displays:
    ttl: 1m
    max_entries: 3
    persistent: false
queue:
  default_max_retries: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("QUEUE_MAX_RETRIES", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Source.Mode != "memory" {
		t.Errorf("Source.Mode = %q, want memory", cfg.Source.Mode)
	}
	if cfg.Cache.Displays.TTL != time.Minute || cfg.Cache.Displays.MaxEntries != 3 || cfg.Cache.Displays.Persistent {
		t.Errorf("Cache.Displays = %+v", cfg.Cache.Displays)
	}
	// Env wins over file.
	if cfg.Queue.DefaultMaxRetries != 7 {
		t.Errorf("Queue.DefaultMaxRetries = %d, want 7", cfg.Queue.DefaultMaxRetries)
	}
	// Untouched values keep their defaults.
	if cfg.Cache.Content.MaxEntries != 50 {
		t.Errorf("Cache.Content.MaxEntries = %d, want 50", cfg.Cache.Content.MaxEntries)
	}
}

func TestLoad_RequiresSourceURL(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error without SOURCE_URL")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SOURCE_URL", "source.url"},
		{"source_api_key", "source.api_key"},
		{"CACHE_PRAYER_TIMES_TTL", "cache.prayer_times.ttl"},
		{"NATS_EMBEDDED", "nats.embedded_server"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := envTransformFunc(tt.in); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
