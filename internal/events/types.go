package events

import (
	"time"

	"github.com/google/uuid"

	"beacon/internal/status"
)

// Type identifies the kind of status transition being published.
type Type string

const (
	ServiceDown      Type = "service_down"
	ServiceDegraded  Type = "service_degraded"
	ServiceRecovered Type = "service_recovered"
	ServiceChanged   Type = "service_changed"
)

// Severity indicates the urgency of an event.
type Severity int

const (
	SeverityInfo     Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event is one status transition published through the bus. Record is
// a snapshot of the service taken when the transition was committed.
type Event struct {
	ID        string        `json:"id"`
	Type      Type          `json:"type"`
	Severity  Severity      `json:"severity"`
	Record    status.Record `json:"record"`
	Previous  status.Status `json:"previous_status"`
	Source    string        `json:"source"` // checkin, poller, sweeper, manual
	Timestamp time.Time     `json:"timestamp"`
}

// ForTransition builds the event for a status transition, deriving
// event type and severity from the new status.
func ForTransition(source string, rec status.Record, previous status.Status) Event {
	e := Event{
		ID:       uuid.NewString(),
		Record:   rec,
		Previous: previous,
		Source:   source,
	}

	switch {
	case rec.Status == status.Down:
		e.Type = ServiceDown
		e.Severity = SeverityCritical
	case rec.Status == status.Degraded:
		e.Type = ServiceDegraded
		e.Severity = SeverityWarning
	case rec.Status == status.Up && previous.IsProblem():
		e.Type = ServiceRecovered
		e.Severity = SeverityInfo
	default:
		e.Type = ServiceChanged
		e.Severity = SeverityInfo
	}
	return e
}
