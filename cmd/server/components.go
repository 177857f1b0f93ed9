// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package main

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/minbar/internal/cache"
	"github.com/tomtom215/minbar/internal/config"
	"github.com/tomtom215/minbar/internal/datastore"
	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/source"
)

// closerFunc adapts a Close method to services.Shutdowner.
type closerFunc func() error

func (f closerFunc) Shutdown(_ context.Context) error { return f() }

// changeBus holds the change notification transport and what must be
// stopped with it.
type changeBus struct {
	feed      *source.ChangeFeed
	publisher *source.ChangePublisher
	embedded  *source.EmbeddedServer
	closers   []namedCloser
}

type namedCloser struct {
	name  string
	close closerFunc
}

// initSource builds the backend the data store reads from. The memory
// source publishes its own writes onto the change bus.
func initSource(cfg *config.Config, bus *changeBus) (source.DataSource, error) {
	if cfg.Source.Mode == "memory" {
		mem := source.NewMemorySource()
		if cfg.Source.SeedFile != "" {
			if err := mem.SeedFile(cfg.Source.SeedFile); err != nil {
				return nil, err
			}
			logging.Info().Str("path", cfg.Source.SeedFile).Msg("Seeded memory source")
		}
		if bus != nil {
			mem.SetChangeSink(bus.publisher)
		}
		logging.Info().Msg("Using in-memory source")
		return mem, nil
	}

	var src source.DataSource = source.NewRESTSource(source.RESTConfig{
		BaseURL:   cfg.Source.URL,
		APIKey:    cfg.Source.APIKey,
		Timeout:   cfg.Source.Timeout,
		RateLimit: cfg.Source.RateLimitPerSecond,
		Burst:     cfg.Source.RateLimitBurst,
	}, logging.WithComponent("rest-source"))

	if cfg.Source.Breaker.Enabled {
		b := cfg.Source.Breaker
		src = source.NewBreakerSource(src, source.BreakerConfig{
			Name:         "remote-source",
			MaxRequests:  b.MaxRequests,
			Interval:     b.Interval,
			Timeout:      b.Timeout,
			MinRequests:  b.MinRequests,
			FailureRatio: b.FailureRatio,
		})
	}
	logging.Info().Str("url", cfg.Source.URL).Bool("breaker", cfg.Source.Breaker.Enabled).Msg("Using REST source")
	return src, nil
}

// initChangeBus connects the change feed. With NATS disabled an in-process
// channel bus is used, which still serves the memory source.
func initChangeBus(cfg *config.Config) (*changeBus, error) {
	bus := &changeBus{}

	if !cfg.NATS.Enabled {
		ch := gochannel.NewGoChannel(gochannel.Config{}, logging.NewWatermillLogger("change-bus"))
		bus.feed = source.NewChangeFeed(ch, logging.WithComponent("change-feed"))
		bus.publisher = source.NewChangePublisher(ch)
		bus.closers = []namedCloser{{"change-feed", bus.feed.Close}, {"change-bus", ch.Close}}
		logging.Info().Msg("NATS disabled, using in-process change bus")
		return bus, nil
	}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		srv, err := source.StartEmbeddedServer(cfg.NATS.Host, cfg.NATS.Port)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		bus.embedded = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	natsCfg := source.NATSConfig{
		URL:           url,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
	}
	sub, err := source.NewNATSSubscriber(natsCfg, logging.NewWatermillLogger("nats-subscriber"))
	if err != nil {
		bus.shutdownEmbedded()
		return nil, err
	}
	pub, err := source.NewNATSPublisher(natsCfg, logging.NewWatermillLogger("nats-publisher"))
	if err != nil {
		_ = sub.Close()
		bus.shutdownEmbedded()
		return nil, err
	}

	bus.feed = source.NewChangeFeed(sub, logging.WithComponent("change-feed"))
	bus.publisher = source.NewChangePublisher(pub)
	bus.closers = []namedCloser{{"change-feed", bus.feed.Close}, {"nats-publisher", pub.Close}}
	logging.Info().Str("url", url).Msg("NATS change feed connected")
	return bus, nil
}

func (b *changeBus) shutdownEmbedded() {
	if b.embedded == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	_ = b.embedded.Shutdown(ctx)
}

// initPersister opens the store for persistent cache namespaces. The
// returned close function is nil for the memory backend.
func initPersister(cfg *config.Config) (cache.Persister, func() error, error) {
	if cfg.Storage.Backend != "badger" {
		logging.Info().Msg("Cache persistence in memory only")
		return cache.NewMemoryPersister(), nil, nil
	}
	p, err := cache.OpenBadgerPersister(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	logging.Info().Str("path", cfg.Storage.Path).Msg("Cache persistence opened")
	return p, p.Close, nil
}

// storeConfig maps file and env configuration onto the data store.
func storeConfig(cfg *config.Config) datastore.Config {
	ns := func(name string, c config.NamespaceConfig) cache.NamespaceConfig {
		return cache.NamespaceConfig{Name: name, TTL: c.TTL, MaxEntries: c.MaxEntries, Persistent: c.Persistent}
	}
	def := datastore.DefaultNamespaces()
	return datastore.Config{
		Namespaces: datastore.Namespaces{
			Displays:    ns(def.Displays.Name, cfg.Cache.Displays),
			Content:     ns(def.Content.Name, cfg.Cache.Content),
			PrayerTimes: ns(def.PrayerTimes.Name, cfg.Cache.PrayerTimes),
		},
		PageSize:     cfg.Content.CandidatePageSize,
		DegradedOver: cfg.Content.HealthDegradedOver,
	}
}
