// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateSource,
		c.validateCache,
		c.validateStorage,
		c.validateContent,
		c.validateQueue,
		c.validateNATS,
		c.validatePrefetch,
		c.validateServer,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Mode {
	case "memory":
		return nil
	case "rest":
	default:
		return fmt.Errorf("%w: source.mode must be rest or memory, got %q", ErrInvalidConfig, c.Source.Mode)
	}
	if c.Source.URL == "" {
		return fmt.Errorf("%w: SOURCE_URL is required when source.mode is rest", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: SOURCE_URL must be an http(s) URL, got %q", ErrInvalidConfig, c.Source.URL)
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("%w: source.timeout must be positive", ErrInvalidConfig)
	}
	if c.Source.RateLimitPerSecond < 0 {
		return fmt.Errorf("%w: source.rate_limit_per_second must not be negative", ErrInvalidConfig)
	}
	if b := c.Source.Breaker; b.Enabled && (b.FailureRatio <= 0 || b.FailureRatio > 1) {
		return fmt.Errorf("%w: source.breaker.failure_ratio must be in (0, 1]", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateCache() error {
	namespaces := map[string]NamespaceConfig{
		"displays":     c.Cache.Displays,
		"content":      c.Cache.Content,
		"prayer_times": c.Cache.PrayerTimes,
	}
	for name, ns := range namespaces {
		if ns.TTL <= 0 {
			return fmt.Errorf("%w: cache.%s.ttl must be positive", ErrInvalidConfig, name)
		}
		if ns.MaxEntries < 1 {
			return fmt.Errorf("%w: cache.%s.max_entries must be at least 1", ErrInvalidConfig, name)
		}
	}
	if c.Cache.JanitorInterval <= 0 {
		return fmt.Errorf("%w: cache.janitor_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "memory":
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for the badger backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.backend must be badger or memory, got %q", ErrInvalidConfig, c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateContent() error {
	if c.Content.DefaultLimit < 1 {
		return fmt.Errorf("%w: content.default_limit must be at least 1", ErrInvalidConfig)
	}
	if c.Content.CandidatePageSize < c.Content.DefaultLimit {
		return fmt.Errorf("%w: content.candidate_page_size must be >= content.default_limit", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Interval <= 0 {
		return fmt.Errorf("%w: queue.interval must be positive", ErrInvalidConfig)
	}
	if c.Queue.DefaultMaxRetries < 1 {
		return fmt.Errorf("%w: queue.default_max_retries must be at least 1", ErrInvalidConfig)
	}
	if c.Queue.DefaultTimeout <= 0 {
		return fmt.Errorf("%w: queue.default_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("%w: NATS_URL is required unless the embedded server is enabled", ErrInvalidConfig)
	}
	if c.NATS.EmbeddedServer && (c.NATS.Port < 1 || c.NATS.Port > 65535) {
		return fmt.Errorf("%w: nats.port must be between 1 and 65535", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validatePrefetch() error {
	if c.Prefetch.Enabled && c.Prefetch.Interval <= 0 {
		return fmt.Errorf("%w: prefetch.interval must be positive when prefetch is enabled", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: HTTP_PORT must be between 1 and 65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("%w: rate_limit_reqs must not be negative", ErrInvalidConfig)
	}
	return nil
}
