// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/minbar/config.yaml",
	"/etc/minbar/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Mode:               "rest",
			Timeout:            10 * time.Second,
			RateLimitPerSecond: 10,
			RateLimitBurst:     20,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Cache: CacheConfig{
			Displays:        NamespaceConfig{TTL: 5 * time.Minute, MaxEntries: 10, Persistent: true},
			Content:         NamespaceConfig{TTL: 2 * time.Minute, MaxEntries: 50, Persistent: true},
			PrayerTimes:     NamespaceConfig{TTL: 24 * time.Hour, MaxEntries: 30, Persistent: true},
			JanitorInterval: time.Minute,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "/data/cache",
		},
		Content: ContentConfig{
			DefaultLimit:       5,
			CandidatePageSize:  50,
			HealthDegradedOver: time.Second,
		},
		Queue: QueueConfig{
			Interval:          5 * time.Second,
			DefaultMaxRetries: 3,
			DefaultTimeout:    30 * time.Second,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Enabled:    false,
			DisplayIDs: []string{},
			Interval:   30 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
	"prefetch.display_ids",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names to koanf paths. Variables
// not listed here are ignored.
var envMappings = map[string]string{
	"source_mode":                  "source.mode",
	"source_url":                   "source.url",
	"source_api_key":               "source.api_key",
	"source_timeout":               "source.timeout",
	"source_seed_file":             "source.seed_file",
	"source_rate_limit":            "source.rate_limit_per_second",
	"source_rate_burst":            "source.rate_limit_burst",
	"source_breaker_enabled":       "source.breaker.enabled",
	"source_breaker_timeout":       "source.breaker.timeout",
	"source_breaker_failure_ratio": "source.breaker.failure_ratio",

	"cache_displays_ttl":     "cache.displays.ttl",
	"cache_displays_max":     "cache.displays.max_entries",
	"cache_content_ttl":      "cache.content.ttl",
	"cache_content_max":      "cache.content.max_entries",
	"cache_prayer_times_ttl": "cache.prayer_times.ttl",
	"cache_prayer_times_max": "cache.prayer_times.max_entries",
	"cache_janitor_interval": "cache.janitor_interval",

	"storage_backend": "storage.backend",
	"storage_path":    "storage.path",

	"content_default_limit":        "content.default_limit",
	"content_candidate_page_size":  "content.candidate_page_size",
	"content_health_degraded_over": "content.health_degraded_over",

	"queue_interval":    "queue.interval",
	"queue_max_retries": "queue.default_max_retries",
	"queue_timeout":     "queue.default_timeout",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_max_reconnects": "nats.max_reconnects",

	"prefetch_enabled":     "prefetch.enabled",
	"prefetch_display_ids": "prefetch.display_ids",
	"prefetch_interval":    "prefetch.interval",

	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"cors_origins":      "server.cors_origins",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
// Examples:
//   - SOURCE_URL -> source.url
//   - QUEUE_INTERVAL -> queue.interval
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
