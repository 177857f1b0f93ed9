// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the handlers into a chi router.
func NewRouter(h *Handler, mw *Middleware) http.Handler {
	if mw == nil {
		mw = NewMiddleware(nil)
	}
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/", h.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(SecurityHeaders())
		r.Use(RequestMetrics())

		r.Get("/displays/{displayID}/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5, "application/json"))

			r.Get("/displays/{displayID}/content", h.DisplayContent)
			r.Post("/displays/{displayID}/prefetch", h.Prefetch)

			r.Post("/queue", h.Enqueue)

			r.Get("/content/metrics", h.ContentMetricsList)
			r.Get("/content/{contentID}/metrics", h.ContentMetrics)
			r.Post("/content/{contentID}/engagement", h.RecordEngagement)

			r.Get("/stats", h.Stats)
			r.Delete("/cache", h.ClearCache)
		})
	})

	return r
}
