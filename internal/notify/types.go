// Package notify turns status transitions into email alerts. A gate
// decides whether a transition warrants a notification (cooldowns,
// recovery bypass, dedup) and a dispatcher feeds it from the event bus.
package notify

import "time"

// HistoryEntry tracks the last notification sent for a service so
// repeated alerts can be suppressed during the cooldown window.
type HistoryEntry struct {
	ServiceName       string    `json:"service_name"`
	LastNotification  time.Time `json:"last_notification"`
	LastStatus        string    `json:"last_status"`
	NotificationCount int       `json:"notification_count"`
}

// Settings is the runtime notification configuration. It starts from
// the environment and can be changed live through the settings API.
type Settings struct {
	Enabled              bool          `json:"enabled"`
	Recipients           []string      `json:"recipients"`
	Cooldown             time.Duration `json:"-"`
	CooldownMinutes      int           `json:"cooldown_minutes"`
	SendRecovery         bool          `json:"send_recovery_notifications"`
	IncludeDashboardLink bool          `json:"include_dashboard_link"`
	DashboardBaseURL     string        `json:"dashboard_base_url"`
}

// normalize keeps the duration and minute representations consistent.
func (s *Settings) normalize() {
	if s.Cooldown == 0 && s.CooldownMinutes > 0 {
		s.Cooldown = time.Duration(s.CooldownMinutes) * time.Minute
	}
	s.CooldownMinutes = int(s.Cooldown / time.Minute)
}
