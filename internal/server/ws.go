package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"beacon/internal/events"
)

// EventHub streams transition events to websocket clients. Clients are
// write-only from the server's perspective; anything they send is
// discarded.
type EventHub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewEventHub creates a hub and subscribes it to the bus.
func NewEventHub(bus *events.Bus) *EventHub {
	h := &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*wsClient]struct{}),
	}
	bus.Subscribe(h.broadcast)
	return h
}

// HandleConnection upgrades the request and streams events until the
// client disconnects.
func (h *EventHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	log.Printf("server: websocket client connected (%d active)", h.ActiveConnections())

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	log.Printf("server: websocket client disconnected (%d active)", h.ActiveConnections())
}

// broadcast fans one event out to every connected client. Slow clients
// lose events rather than stalling the bus.
func (h *EventHub) broadcast(e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("server: marshal event %s: %v", e.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- payload:
		default:
			log.Printf("server: websocket client too slow, dropping %s event", e.Type)
		}
	}
}

// readLoop consumes and discards client messages until the connection
// closes.
func (h *EventHub) readLoop(c *wsClient) {
	defer c.conn.Close()
	defer close(c.done)

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	}
}

// writeLoop delivers queued events and keeps the connection alive with
// periodic pings.
func (h *EventHub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(10*time.Second),
			); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// ActiveConnections returns the number of connected clients.
func (h *EventHub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll terminates every client connection.
func (h *EventHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(5*time.Second),
		)
		c.conn.Close()
		delete(h.conns, c)
	}
}
