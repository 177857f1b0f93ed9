// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/minbar/internal/datastore"
	"github.com/tomtom215/minbar/internal/display"
	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/queue"
	"github.com/tomtom215/minbar/internal/validation"
	ws "github.com/tomtom215/minbar/internal/websocket"
)

const (
	maxContentLimit = 50
	maxPageSize     = 200
)

// Handler serves the display-facing HTTP API.
type Handler struct {
	manager        *display.Manager
	hub            *ws.Hub
	allowedOrigins []string
}

// NewHandler creates a Handler. hub may be nil, which disables the
// websocket endpoint.
func NewHandler(manager *display.Manager, hub *ws.Hub, allowedOrigins []string) *Handler {
	return &Handler{manager: manager, hub: hub, allowedOrigins: allowedOrigins}
}

// Health reports data store health. Unhealthy answers 503 so load balancers
// take the instance out.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.manager.Store().HealthCheck(r.Context())
	status := http.StatusOK
	if health.Status == datastore.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	NewResponseWriter(w, r).Status(status, status == http.StatusOK, health)
}

// DisplayContent returns the selected content for a display.
func (h *Handler) DisplayContent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	displayID := chi.URLParam(r, "displayID")

	limit, err := intParam(r, "limit", 0, 1, maxContentLimit)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	pageSize, err := intParam(r, "page_size", 0, 1, maxPageSize)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	skipQueue, err := boolParam(r, "skip_queue")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	fresh, err := boolParam(r, "fresh")
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	items := h.manager.GetDisplayContent(r.Context(), displayID, limit, display.Options{
		SkipQueue: skipQueue,
		Fresh:     fresh,
		PageSize:  pageSize,
	})
	rw.SuccessWithCount(items, len(items))
}

// Prefetch warms the caches of a display and notifies its connected
// screens.
func (h *Handler) Prefetch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	displayID := chi.URLParam(r, "displayID")

	if err := h.manager.Store().Prefetch(r.Context(), displayID); err != nil {
		rw.UpstreamError(err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToDisplay(displayID, ws.MessageTypePrefetched, ws.PrefetchedData{
			DisplayID: displayID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
	rw.Success(map[string]interface{}{"display_id": displayID, "prefetched": true})
}

// Enqueue adds a content item to the background processing queue.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req EnqueueRequest
	if err := decodeBody(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	opts, err := req.Options(h.manager.DefaultProcessingOptions())
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	if err := h.manager.AddToQueue(req.Item, opts); err != nil {
		if errors.Is(err, queue.ErrQueueClosed) {
			rw.ServiceUnavailable("processing queue is shut down")
			return
		}
		rw.BadRequest(err.Error())
		return
	}
	rw.Accepted(map[string]interface{}{"content_id": req.Item.ID, "priority": opts.Priority})
}

// ContentMetricsList returns metrics for every tracked item.
func (h *Handler) ContentMetricsList(w http.ResponseWriter, r *http.Request) {
	all := h.manager.AllContentMetrics()
	NewResponseWriter(w, r).SuccessWithCount(all, len(all))
}

// ContentMetrics returns the metrics of one item.
func (h *Handler) ContentMetrics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	m, ok := h.manager.GetContentMetrics(chi.URLParam(r, "contentID"))
	if !ok {
		rw.NotFound("no metrics recorded for this content")
		return
	}
	rw.Success(m)
}

// RecordEngagement folds an engagement sample into an item's metrics.
func (h *Handler) RecordEngagement(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	contentID := chi.URLParam(r, "contentID")

	var req EngagementRequest
	if err := decodeBody(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	if err := h.manager.RecordEngagement(contentID, *req.Rate); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	m, _ := h.manager.GetContentMetrics(contentID)
	rw.Success(m)
}

// StatsResponse combines pipeline and websocket statistics.
type StatsResponse struct {
	Pipeline  display.Stats  `json:"pipeline"`
	WebSocket WebSocketStats `json:"websocket"`
}

// WebSocketStats describes connected displays.
type WebSocketStats struct {
	Clients  int      `json:"clients"`
	Displays []string `json:"displays"`
}

// Stats returns cache, queue, selection and websocket statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Pipeline: h.manager.GetStats(), WebSocket: WebSocketStats{Displays: []string{}}}
	if h.hub != nil {
		resp.WebSocket.Clients = h.hub.GetClientCount()
		resp.WebSocket.Displays = h.hub.Displays()
	}
	NewResponseWriter(w, r).Success(resp)
}

// ClearCache empties the content cache and tells connected displays.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.manager.ClearCache()
	if h.hub != nil {
		h.hub.BroadcastJSON(ws.MessageTypeCacheCleared, map[string]string{"cleared_at": time.Now().UTC().Format(time.RFC3339)})
	}
	NewResponseWriter(w, r).Success(map[string]bool{"cleared": true})
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts configured origins. A "*" entry accepts any
// origin, including kiosk clients that send none.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || (origin != "" && allowed == origin) {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades a display connection, sends its current selection and
// starts watching the display for content changes.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("live updates are disabled")
		return
	}
	displayID := chi.URLParam(r, "displayID")
	log := logging.Ctx(r.Context()).With().Str("display_id", displayID).Logger()

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, displayID)
	h.hub.Register <- client
	client.Start()

	if !h.manager.Watching(displayID) {
		if _, err := h.manager.Watch(displayID); err != nil {
			if errors.Is(err, datastore.ErrNoNotifier) {
				log.Debug().Msg("Change notifications unavailable; display will poll")
			} else {
				log.Warn().Err(err).Msg("Failed to watch display")
			}
		}
	}

	items := h.manager.GetDisplayContent(r.Context(), displayID, 0, display.Options{SkipQueue: true})
	h.hub.NotifyContentUpdated(displayID, items)
}
