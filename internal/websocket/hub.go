// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/minbar/internal/logging"
	"github.com/tomtom215/minbar/internal/metrics"
	"github.com/tomtom215/minbar/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline means the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeContentUpdated = "content_updated"
	MessageTypeCacheCleared   = "cache_cleared"
	MessageTypePrefetched     = "prefetched"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ContentUpdatedData is sent to a display when its content selection changed.
type ContentUpdatedData struct {
	DisplayID string               `json:"display_id"`
	Items     []models.ContentItem `json:"items"`
	Count     int                  `json:"count"`
	Timestamp string               `json:"timestamp"`
}

// PrefetchedData is sent to a display after its caches were warmed.
type PrefetchedData struct {
	DisplayID string `json:"display_id"`
	Timestamp string `json:"timestamp"`
}

// delivery is a message addressed to one display, or to every client when
// displayID is empty.
type delivery struct {
	displayID string
	message   Message
}

// Hub maintains the set of connected display clients and routes messages to
// the clients of a display.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan delivery
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan delivery, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Lifecycle events are handled before deliveries so a client registered just
// before a broadcast receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketConnections.Set(float64(total))
	logging.Info().Str("display_id", client.displayID).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketConnections.Set(float64(total))
	logging.Info().Str("display_id", client.displayID).Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err() is
// not logged as an error since cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns the matching clients in ID order. Callers hold h.mu.
func (h *Hub) sortedClients(displayID string) []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if displayID == "" || client.displayID == displayID {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// deliver sends d to its clients in ID order. Clients whose send buffer is
// full are dropped.
func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClients(d.displayID) {
		select {
		case client.send <- d.message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped", len(toRemove)).Msg("dropped slow websocket clients")
	}
}

// closeAllClients closes every client in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients("") {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketConnections.Set(0)
}

func (h *Hub) enqueue(d delivery) bool {
	select {
	case h.broadcast <- d:
		return true
	default:
		logging.Warn().Str("message_type", d.message.Type).Str("display_id", d.displayID).Msg("broadcast channel full, dropping message")
		return false
	}
}

// NotifyContentUpdated pushes a fresh content selection to the clients of
// displayID.
func (h *Hub) NotifyContentUpdated(displayID string, items []models.ContentItem) {
	if items == nil {
		items = []models.ContentItem{}
	}
	data := ContentUpdatedData{
		DisplayID: displayID,
		Items:     items,
		Count:     len(items),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.enqueue(delivery{displayID: displayID, message: Message{Type: MessageTypeContentUpdated, Data: data}}) {
		logging.Debug().Str("display_id", displayID).Int("items", len(items)).Msg("broadcast content_updated")
	}
}

// BroadcastToDisplay sends a typed message to the clients of displayID.
func (h *Hub) BroadcastToDisplay(displayID, messageType string, data interface{}) {
	h.enqueue(delivery{displayID: displayID, message: Message{Type: messageType, Data: data}})
}

// BroadcastJSON sends a typed message to every connected client.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.enqueue(delivery{message: Message{Type: messageType, Data: data}})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DisplayClientCount returns the number of clients connected for displayID.
func (h *Hub) DisplayClientCount(displayID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.displayID == displayID {
			n++
		}
	}
	return n
}

// Displays returns the sorted IDs of displays with at least one client.
func (h *Hub) Displays() []string {
	h.mu.RLock()
	seen := make(map[string]struct{})
	for client := range h.clients {
		seen[client.displayID] = struct{}{}
	}
	h.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
