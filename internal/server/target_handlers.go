package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"beacon/internal/events"
	"beacon/internal/targets"
)

// ListTargets handles GET /api/targets
func (s *Server) ListTargets(w http.ResponseWriter, r *http.Request) {
	ts, err := targets.List(s.db)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{
		"targets": ts,
		"total":   len(ts),
	})
}

// GetTarget handles GET /api/targets/{name}
func (s *Server) GetTarget(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	t, err := targets.Get(s.db, name)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if t == nil {
		respondError(w, fmt.Sprintf("Monitored target '%s' not found", name), http.StatusNotFound)
		return
	}
	respondJSON(w, t)
}

// CreateTarget handles POST /api/targets
func (s *Server) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var t targets.Target
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := targets.Upsert(s.db, &t); err != nil {
		if errors.Is(err, targets.ErrInvalidTarget) {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.manager.Apply(t)
	log.Printf("server: target %s saved (enabled=%t)", t.Name, t.Enabled)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

// UpdateTarget handles PUT /api/targets/{name}
func (s *Server) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var t targets.Target
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if t.Name != name {
		respondError(w, "target name in path must match name in body", http.StatusBadRequest)
		return
	}

	existing, err := targets.Get(s.db, name)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		respondError(w, fmt.Sprintf("Monitored target '%s' not found", name), http.StatusNotFound)
		return
	}

	if err := targets.Upsert(s.db, &t); err != nil {
		if errors.Is(err, targets.ErrInvalidTarget) {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.manager.Apply(t)
	log.Printf("server: target %s updated (enabled=%t)", t.Name, t.Enabled)
	respondJSON(w, t)
}

// DeleteTarget handles DELETE /api/targets/{name}
func (s *Server) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.manager.Stop(name)

	existed, err := targets.Delete(s.db, name)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !existed {
		respondError(w, fmt.Sprintf("Monitored target '%s' not found", name), http.StatusNotFound)
		return
	}

	log.Printf("server: target %s deleted", name)
	w.WriteHeader(http.StatusNoContent)
}

// CheckTarget handles POST /api/targets/{name}/check
// It probes the target immediately and records the result like a
// regular poll iteration.
func (s *Server) CheckTarget(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	t, err := targets.Get(s.db, name)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if t == nil {
		respondError(w, fmt.Sprintf("Monitored target '%s' not found", name), http.StatusNotFound)
		return
	}

	st, message, metadata := s.manager.CheckOnce(r.Context(), *t)

	rec, previous, err := s.store.Update(t.Name, st, message, metadata)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if previous != nil {
		s.bus.Publish(events.ForTransition("poller", rec, *previous))
	}

	respondJSON(w, map[string]interface{}{
		"service_name": name,
		"status":       st,
		"message":      message,
		"metadata":     metadata,
	})
}
