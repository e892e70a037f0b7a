package notify

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"beacon/internal/status"
)

// Gate decides whether a status transition warrants a notification and
// delivers it to every recipient. Alert notifications are rate-limited
// per service by the cooldown window; recovery notifications bypass the
// cooldown so operators learn about recoveries immediately.
type Gate struct {
	mu       sync.Mutex
	history  map[string]*HistoryEntry
	settings Settings
	sender   Sender
	db       *sql.DB
	now      func() time.Time
}

// NewGate creates a gate delivering through sender. db may be nil, in
// which case deliveries are not logged.
func NewGate(settings Settings, sender Sender, db *sql.DB) *Gate {
	settings.normalize()
	return &Gate{
		history:  make(map[string]*HistoryEntry),
		settings: settings,
		sender:   sender,
		db:       db,
		now:      time.Now,
	}
}

// Notify evaluates a transition and sends the notification if it passes
// the gate. It reports whether at least one recipient was delivered to.
func (g *Gate) Notify(rec status.Record, previous status.Status) bool {
	g.mu.Lock()
	settings := g.settingsLocked()
	entry := g.history[rec.ServiceName]
	now := g.now().UTC()

	if !settings.Enabled {
		g.mu.Unlock()
		return false
	}
	if previous == rec.Status {
		g.mu.Unlock()
		return false
	}

	isAlert := rec.Status.IsProblem()
	isRecovery := previous.IsProblem() && rec.Status == status.Up

	switch {
	case isAlert:
		if entry != nil && now.Sub(entry.LastNotification) < settings.Cooldown {
			log.Printf("notify: cooldown active for %s, suppressing alert", rec.ServiceName)
			g.mu.Unlock()
			return false
		}
	case isRecovery && settings.SendRecovery:
	default:
		g.mu.Unlock()
		return false
	}

	// History counts send attempts, not successful deliveries.
	if entry == nil {
		entry = &HistoryEntry{ServiceName: rec.ServiceName}
		g.history[rec.ServiceName] = entry
	}
	entry.LastNotification = now
	entry.LastStatus = string(rec.Status)
	entry.NotificationCount++
	g.mu.Unlock()

	subject, plain, htmlBody := buildContent(rec, isRecovery, settings)

	sent := 0
	for _, recipient := range settings.Recipients {
		err := g.sender.Send(recipient, subject, plain, htmlBody)
		if err == nil {
			sent++
		}
		g.logDelivery(rec.ServiceName, recipient, subject, err)
	}

	kind := "alert"
	if isRecovery {
		kind = "recovery"
	}
	log.Printf("notify: %s for %s delivered to %d/%d recipients", kind, rec.ServiceName, sent, len(settings.Recipients))

	return sent > 0
}

func (g *Gate) logDelivery(service, recipient, subject string, sendErr error) {
	if g.db == nil {
		return
	}
	if err := RecordDelivery(g.db, service, recipient, subject, sendErr); err != nil {
		log.Printf("notify: record delivery: %v", err)
	}
}

// History returns a snapshot of the notification history.
func (g *Gate) History() map[string]HistoryEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]HistoryEntry, len(g.history))
	for name, e := range g.history {
		out[name] = *e
	}
	return out
}

// ClearHistory removes the history entry for one service. It reports
// whether an entry existed.
func (g *Gate) ClearHistory(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.history[name]
	delete(g.history, name)
	return ok
}

// ClearAllHistory removes all history entries.
func (g *Gate) ClearAllHistory() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = make(map[string]*HistoryEntry)
}

// Settings returns a copy of the current settings.
func (g *Gate) Settings() Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settingsLocked()
}

func (g *Gate) settingsLocked() Settings {
	s := g.settings
	s.Recipients = append([]string(nil), g.settings.Recipients...)
	return s
}

// UpdateSettings replaces the gate's settings.
func (g *Gate) UpdateSettings(s Settings) {
	s.normalize()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings = s
	g.settings.Recipients = append([]string(nil), s.Recipients...)
}

// SetEnabled toggles notifications.
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.Enabled = enabled
}

// SetCooldown changes the alert cooldown window.
func (g *Gate) SetCooldown(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.Cooldown = d
	g.settings.CooldownMinutes = int(d / time.Minute)
}

// SetRecipients replaces the recipient list.
func (g *Gate) SetRecipients(recipients []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.Recipients = append([]string(nil), recipients...)
}

// SetSendRecovery toggles recovery notifications.
func (g *Gate) SetSendRecovery(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings.SendRecovery = enabled
}
