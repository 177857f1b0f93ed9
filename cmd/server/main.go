// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/minbar/internal/api"
	"github.com/tomtom215/minbar/internal/config"
	"github.com/tomtom215/minbar/internal/datastore"
	"github.com/tomtom215/minbar/internal/display"
	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/queue"
	"github.com/tomtom215/minbar/internal/supervisor"
	"github.com/tomtom215/minbar/internal/supervisor/services"
	ws "github.com/tomtom215/minbar/internal/websocket"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	thumbnailCheckTimeout  = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("source_mode", cfg.Source.Mode).
		Str("storage", cfg.Storage.Backend).
		Bool("nats", cfg.NATS.Enabled).
		Msg("Starting Minbar")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  defaultShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === DATA LAYER ===

	bus, err := initChangeBus(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize change bus")
	}

	src, err := initSource(cfg, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize data source")
	}

	persister, closePersister, err := initPersister(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open cache persistence")
	}

	store := datastore.New(src, storeConfig(cfg),
		datastore.WithNotifier(bus.feed),
		datastore.WithPersister(persister),
		datastore.WithLogger(logging.WithComponent("datastore")),
	)

	// === PROCESSING LAYER ===

	wsHub := ws.NewHub()

	managerOpts := []display.Option{
		display.WithNotifier(wsHub),
		display.WithLogger(logging.WithComponent("display-manager")),
	}
	if cfg.Source.Mode == "rest" {
		managerOpts = append(managerOpts, display.WithThumbnailCheck(&http.Client{Timeout: thumbnailCheckTimeout}))
	}
	manager := display.New(store, display.Config{
		DefaultLimit: cfg.Content.DefaultLimit,
		PageSize:     cfg.Content.CandidatePageSize,
		Queue: queue.Defaults{
			MaxRetries: cfg.Queue.DefaultMaxRetries,
			Timeout:    cfg.Queue.DefaultTimeout,
		},
	}, managerOpts...)

	// === API LAYER ===

	mwCfg := api.DefaultMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	if cfg.Server.RateLimitReqs > 0 {
		mwCfg.RateLimitRequests = cfg.Server.RateLimitReqs
		mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	} else {
		mwCfg.RateLimitDisabled = true
	}

	handler := api.NewHandler(manager, wsHub, cfg.Server.CORSOrigins)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, api.NewMiddleware(mwCfg)),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Data layer services
	tree.AddDataService(services.NewCacheJanitorService(store, cfg.Cache.JanitorInterval, logging.WithComponent("cache-janitor")))
	if cfg.Prefetch.Enabled && len(cfg.Prefetch.DisplayIDs) > 0 {
		tree.AddDataService(services.NewPrefetchService(store, cfg.Prefetch.DisplayIDs, cfg.Prefetch.Interval, logging.WithComponent("prefetch")))
		logging.Info().Strs("displays", cfg.Prefetch.DisplayIDs).Msg("Prefetch service added")
	}
	for _, c := range bus.closers {
		tree.AddDataService(services.NewShutdownService(c.name, c.close, defaultShutdownTimeout))
	}
	if bus.embedded != nil {
		tree.AddDataService(services.NewShutdownService("nats-embedded", bus.embedded, defaultShutdownTimeout))
	}

	// Processing layer services
	tree.AddProcessingService(services.NewWebSocketHubService(wsHub))
	tree.AddProcessingService(services.NewQueueService(manager.Driver(), cfg.Queue.Interval, logging.WithComponent("queue")))
	logging.Info().Dur("interval", cfg.Queue.Interval).Msg("WebSocket hub and queue added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, defaultShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	manager.Cleanup()
	if closePersister != nil {
		if err := closePersister(); err != nil {
			logging.Error().Err(err).Msg("Failed to close cache persistence")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
