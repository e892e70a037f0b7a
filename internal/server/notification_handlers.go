package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"beacon/internal/notify"
	"beacon/internal/settings"
	"beacon/internal/status"
)

// NotificationHistory handles GET /api/notifications/history
func (s *Server) NotificationHistory(w http.ResponseWriter, r *http.Request) {
	history := s.gate.History()
	respondJSON(w, map[string]interface{}{
		"success":        true,
		"history":        history,
		"total_services": len(history),
	})
}

// ClearNotificationHistory handles DELETE /api/notifications/history/{name}
func (s *Server) ClearNotificationHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.gate.ClearHistory(name)
	respondJSON(w, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Notification history cleared for %s", name),
	})
}

// ClearAllNotificationHistory handles DELETE /api/notifications/history
func (s *Server) ClearAllNotificationHistory(w http.ResponseWriter, r *http.Request) {
	s.gate.ClearAllHistory()
	respondJSON(w, map[string]interface{}{
		"success": true,
		"message": "All notification history cleared",
	})
}

// TestNotification handles POST /api/notifications/test
// It pushes a synthetic DOWN transition through the gate so operators
// can verify delivery end to end.
func (s *Server) TestNotification(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("service_name")
	if name == "" {
		name = "test-service"
	}

	rec := status.Record{
		ServiceName:  name,
		Status:       status.Down,
		LastCheckIn:  time.Now().UTC(),
		Message:      "This is a test notification from the Service Monitor",
		Metadata:     map[string]string{"source": "test_endpoint", "version": "test"},
		CheckInCount: 1,
	}

	sent := s.gate.Notify(rec, status.Up)
	outcome := "failed"
	if sent {
		outcome = "sent"
	}
	respondJSON(w, map[string]interface{}{
		"success": sent,
		"message": fmt.Sprintf("Test notification %s for %s", outcome, name),
	})
}

// NotificationSettings handles GET /api/notifications/settings
func (s *Server) NotificationSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.gate.Settings())
}

// settingsUpdate is the body of PUT /api/notifications/settings. Only
// the fields present in the request are changed.
type settingsUpdate struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	Recipients      []string `json:"recipients,omitempty"`
	CooldownMinutes *int     `json:"cooldown_minutes,omitempty"`
	SendRecovery    *bool    `json:"send_recovery_notifications,omitempty"`
}

// UpdateNotificationSettings handles PUT /api/notifications/settings
// Changes take effect immediately and are persisted so they survive a
// restart.
func (s *Server) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	var update settingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if update.Enabled != nil {
		s.gate.SetEnabled(*update.Enabled)
		s.persistSetting("enabled", strconv.FormatBool(*update.Enabled))
	}
	if update.Recipients != nil {
		s.gate.SetRecipients(update.Recipients)
		s.persistSetting("recipients", strings.Join(update.Recipients, ","))
	}
	if update.CooldownMinutes != nil {
		if *update.CooldownMinutes < 0 {
			respondError(w, "cooldown_minutes must not be negative", http.StatusBadRequest)
			return
		}
		s.gate.SetCooldown(time.Duration(*update.CooldownMinutes) * time.Minute)
		s.persistSetting("cooldown_minutes", strconv.Itoa(*update.CooldownMinutes))
	}
	if update.SendRecovery != nil {
		s.gate.SetSendRecovery(*update.SendRecovery)
		s.persistSetting("send_recovery", strconv.FormatBool(*update.SendRecovery))
	}

	respondJSON(w, s.gate.Settings())
}

func (s *Server) persistSetting(key, value string) {
	if s.db == nil {
		return
	}
	if err := settings.Set(s.db, "notifications", key, value); err != nil {
		log.Printf("server: persist notifications.%s: %v", key, err)
	}
}

// NotificationLog handles GET /api/notifications/log
func (s *Server) NotificationLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	deliveries, err := notify.RecentDeliveries(s.db, limit)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{
		"deliveries": deliveries,
		"total":      len(deliveries),
	})
}
