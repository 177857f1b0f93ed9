// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// setupWebSocketServer creates a test WebSocket server with a custom handler
func setupWebSocketServer(t *testing.T, handler func(t *testing.T, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()
		handler(t, conn)
	}))
}

// dialWebSocket establishes a WebSocket connection to the test server
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	return conn
}

func waitForChannel(t *testing.T, ch <-chan bool, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Errorf("%s: timeout after %v", msg, timeout)
	}
}

func TestNewClient(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, "d1")
	b := NewClient(hub, nil, "d2")

	if a.DisplayID() != "d1" || b.DisplayID() != "d2" {
		t.Errorf("display IDs = %q, %q", a.DisplayID(), b.DisplayID())
	}
	if b.ID() <= a.ID() {
		t.Errorf("IDs not increasing: %d then %d", a.ID(), b.ID())
	}
	if cap(a.send) != 32 {
		t.Errorf("send capacity = %d, want 32", cap(a.send))
	}
}

func TestClient_WritePump_SendMessage(t *testing.T) {
	hub := NewHub()

	received := make(chan bool, 1)
	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("Failed to read message: %v", err)
			return
		}
		if msg.Type != MessageTypeContentUpdated {
			t.Errorf("message type = %q", msg.Type)
		}
		received <- true
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	client := NewClient(hub, conn, "d1")
	go client.writePump()
	client.send <- Message{Type: MessageTypeContentUpdated, Data: ContentUpdatedData{DisplayID: "d1"}}

	waitForChannel(t, received, time.Second, "message not received")
}

func TestClient_PingPong(t *testing.T) {
	hub, _, _ := startHub(t)

	receivedPong := make(chan bool, 1)
	server := setupWebSocketServer(t, func(t *testing.T, conn *websocket.Conn) {
		if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
			t.Errorf("Failed to write ping: %v", err)
			return
		}
		var reply Message
		if err := conn.ReadJSON(&reply); err != nil {
			t.Errorf("Failed to read pong: %v", err)
			return
		}
		if reply.Type == MessageTypePong {
			receivedPong <- true
		}
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	NewClient(hub, conn, "d1").Start()
	waitForChannel(t, receivedPong, time.Second, "pong not received")
}

func TestClient_ReadPump_ConnectionClose(t *testing.T) {
	hub := NewHub()

	unregistered := make(chan bool, 1)
	go func() {
		select {
		case <-hub.Unregister:
			unregistered <- true
		case <-time.After(2 * time.Second):
		}
	}()

	server := setupWebSocketServer(t, func(_ *testing.T, conn *websocket.Conn) {
		_ = conn.Close()
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	client := NewClient(hub, conn, "d1")
	go client.readPump()

	waitForChannel(t, unregistered, time.Second, "client not unregistered after connection close")
}

func TestClient_WritePump_ChannelClose(t *testing.T) {
	hub := NewHub()

	closed := make(chan bool, 1)
	server := setupWebSocketServer(t, func(_ *testing.T, conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		if websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) || err != nil {
			closed <- true
		}
	})
	defer server.Close()

	conn := dialWebSocket(t, server)
	defer conn.Close()

	client := NewClient(hub, conn, "d1")
	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()
	close(client.send)

	waitForChannel(t, closed, time.Second, "close frame not received")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("writePump did not return after channel close")
	}
}
