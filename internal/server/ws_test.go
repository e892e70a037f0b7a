package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"beacon/internal/events"
	"beacon/internal/status"
)

func TestEventHubStreamsTransitions(t *testing.T) {
	bus := events.NewBus()
	hub := NewEventHub(bus)
	defer hub.CloseAll()

	srv := httptest.NewServer(testHubMux(hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, 1)

	rec := status.Record{ServiceName: "api", Status: status.Down, CheckInCount: 3}
	bus.Publish(events.ForTransition("sweeper", rec, status.Up))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var e events.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		t.Fatalf("decode frame %s: %v", payload, err)
	}
	if e.Type != events.ServiceDown || e.Record.ServiceName != "api" || e.Previous != status.Up {
		t.Errorf("unexpected event frame: %+v", e)
	}
}

func TestEventHubCloseAll(t *testing.T) {
	bus := events.NewBus()
	hub := NewEventHub(bus)

	srv := httptest.NewServer(testHubMux(hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, 1)
	hub.CloseAll()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for hub.ActiveConnections() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ActiveConnections() != 0 {
		t.Errorf("%d connections still tracked after CloseAll", hub.ActiveConnections())
	}
}

func testHubMux(hub *EventHub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/events", hub.HandleConnection)
	return mux
}

func waitForClients(t *testing.T, hub *EventHub, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for hub.ActiveConnections() != want && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ActiveConnections() != want {
		t.Fatalf("active connections = %d, want %d", hub.ActiveConnections(), want)
	}
}
