package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"beacon/internal/events"
	"beacon/internal/status"
)

// checkInRequest is the body of POST /api/services/checkin.
type checkInRequest struct {
	ServiceName string            `json:"service_name"`
	Status      string            `json:"status"`
	Message     string            `json:"message,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CheckIn handles POST /api/services/checkin
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	st, err := status.Parse(req.Status)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, previous, err := s.store.Update(req.ServiceName, st, req.Message, req.Metadata)
	if err != nil {
		if errors.Is(err, status.ErrEmptyName) {
			respondError(w, "Service name cannot be empty", http.StatusBadRequest)
			return
		}
		respondError(w, "Failed to process service check-in", http.StatusInternalServerError)
		return
	}

	log.Printf("server: check-in from %s (status=%s, count=%d)", rec.ServiceName, rec.Status, rec.CheckInCount)

	if previous != nil {
		s.bus.Publish(events.ForTransition("checkin", rec, *previous))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// ListServices handles GET /api/services
func (s *Server) ListServices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.store.GetAll())
}

// GetService handles GET /api/services/{name}
func (s *Server) GetService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rec := s.store.Get(name)
	if rec == nil {
		respondError(w, fmt.Sprintf("Service '%s' not found", name), http.StatusNotFound)
		return
	}
	respondJSON(w, rec)
}

// RemoveService handles DELETE /api/services/{name}
func (s *Server) RemoveService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.store.Remove(name) {
		respondError(w, fmt.Sprintf("Service '%s' not found", name), http.StatusNotFound)
		return
	}
	log.Printf("server: removed service %s", name)
	w.WriteHeader(http.StatusNoContent)
}

// ServicesByStatus handles GET /api/services/status/{status}
func (s *Server) ServicesByStatus(w http.ResponseWriter, r *http.Request) {
	st, err := status.Parse(r.PathValue("status"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, s.store.GetByStatus(st))
}

// dashboardService augments a record with a human-readable age.
type dashboardService struct {
	status.Record
	LastCheckInAgo string `json:"last_check_in_ago"`
}

// Dashboard handles GET /api/dashboard
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	records := s.store.GetAll()

	counts := make(map[string]int, len(status.All))
	for _, st := range status.All {
		counts[string(st)] = 0
	}

	services := make([]dashboardService, 0, len(records))
	for _, rec := range records {
		counts[string(rec.Status)]++
		services = append(services, dashboardService{
			Record:         rec,
			LastCheckInAgo: humanize.Time(rec.LastCheckIn),
		})
	}

	respondJSON(w, map[string]interface{}{
		"total":    len(records),
		"counts":   counts,
		"services": services,
	})
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":             "healthy",
		"timestamp":          time.Now().UTC(),
		"uptime_seconds":     time.Since(s.started).Seconds(),
		"monitored_services": s.store.Count(),
	})
}
