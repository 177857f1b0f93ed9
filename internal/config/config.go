// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package config

import "time"

// Config holds all runtime configuration for the display content pipeline.
type Config struct {
	Source   SourceConfig   `koanf:"source"`
	Cache    CacheConfig    `koanf:"cache"`
	Storage  StorageConfig  `koanf:"storage"`
	Content  ContentConfig  `koanf:"content"`
	Queue    QueueConfig    `koanf:"queue"`
	NATS     NATSConfig     `koanf:"nats"`
	Prefetch PrefetchConfig `koanf:"prefetch"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SourceConfig describes the hosted backend that owns displays, content and
// prayer times.
type SourceConfig struct {
	// Mode selects the backend: "rest" (hosted PostgREST-style API) or
	// "memory" (in-process, for demos and offline kiosks).
	Mode    string        `koanf:"mode"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// SeedFile is a JSON document loaded into the memory source at startup.
	SeedFile string `koanf:"seed_file"`

	// Client-side rate limit towards the backend.
	RateLimitPerSecond float64 `koanf:"rate_limit_per_second"`
	RateLimitBurst     int     `koanf:"rate_limit_burst"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the remote source.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// NamespaceConfig configures one cache namespace.
type NamespaceConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
	Persistent bool          `koanf:"persistent"`
}

// CacheConfig configures the three cache namespaces.
type CacheConfig struct {
	Displays        NamespaceConfig `koanf:"displays"`
	Content         NamespaceConfig `koanf:"content"`
	PrayerTimes     NamespaceConfig `koanf:"prayer_times"`
	JanitorInterval time.Duration   `koanf:"janitor_interval"`
}

// StorageConfig selects where persistent cache namespaces are written.
type StorageConfig struct {
	// Backend is "badger" or "memory".
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
}

// ContentConfig tunes content selection.
type ContentConfig struct {
	DefaultLimit       int           `koanf:"default_limit"`
	CandidatePageSize  int           `koanf:"candidate_page_size"`
	HealthDegradedOver time.Duration `koanf:"health_degraded_over"`
}

// QueueConfig tunes the background processing queue.
type QueueConfig struct {
	Interval          time.Duration `koanf:"interval"`
	DefaultMaxRetries int           `koanf:"default_max_retries"`
	DefaultTimeout    time.Duration `koanf:"default_timeout"`
}

// NATSConfig configures the change-notification transport.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// PrefetchConfig lists displays that are warmed periodically so they keep
// working through backend outages.
type PrefetchConfig struct {
	Enabled    bool          `koanf:"enabled"`
	DisplayIDs []string      `koanf:"display_ids"`
	Interval   time.Duration `koanf:"interval"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig mirrors logging.Config for file and env loading.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
