package server

import (
	"database/sql"
	"net/http"
	"time"

	"beacon/internal/events"
	"beacon/internal/notify"
	"beacon/internal/poller"
	"beacon/internal/status"
)

// Server holds the handler dependencies.
type Server struct {
	db      *sql.DB
	store   *status.Store
	bus     *events.Bus
	gate    *notify.Gate
	manager *poller.Manager
	hub     *EventHub
	started time.Time
}

// New creates the API server. hub may be nil when the websocket stream
// is not wanted (tests).
func New(db *sql.DB, store *status.Store, bus *events.Bus, gate *notify.Gate, manager *poller.Manager, hub *EventHub) *Server {
	return &Server{
		db:      db,
		store:   store,
		bus:     bus,
		gate:    gate,
		manager: manager,
		hub:     hub,
		started: time.Now(),
	}
}

// Routes builds the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("GET /api/dashboard", s.Dashboard)

	mux.HandleFunc("POST /api/services/checkin", s.CheckIn)
	mux.HandleFunc("GET /api/services", s.ListServices)
	mux.HandleFunc("GET /api/services/{name}", s.GetService)
	mux.HandleFunc("DELETE /api/services/{name}", s.RemoveService)
	mux.HandleFunc("GET /api/services/status/{status}", s.ServicesByStatus)

	mux.HandleFunc("GET /api/targets", s.ListTargets)
	mux.HandleFunc("GET /api/targets/{name}", s.GetTarget)
	mux.HandleFunc("POST /api/targets", s.CreateTarget)
	mux.HandleFunc("PUT /api/targets/{name}", s.UpdateTarget)
	mux.HandleFunc("DELETE /api/targets/{name}", s.DeleteTarget)
	mux.HandleFunc("POST /api/targets/{name}/check", s.CheckTarget)

	mux.HandleFunc("GET /api/notifications/history", s.NotificationHistory)
	mux.HandleFunc("DELETE /api/notifications/history", s.ClearAllNotificationHistory)
	mux.HandleFunc("DELETE /api/notifications/history/{name}", s.ClearNotificationHistory)
	mux.HandleFunc("POST /api/notifications/test", s.TestNotification)
	mux.HandleFunc("GET /api/notifications/settings", s.NotificationSettings)
	mux.HandleFunc("PUT /api/notifications/settings", s.UpdateNotificationSettings)
	mux.HandleFunc("GET /api/notifications/log", s.NotificationLog)

	if s.hub != nil {
		mux.HandleFunc("GET /ws/events", s.hub.HandleConnection)
	}

	return mux
}
