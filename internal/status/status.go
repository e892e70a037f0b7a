// Package status holds the authoritative in-memory view of every
// monitored service's current state. Check-ins from services, probe
// results from the poller and demotions from the stale sweeper all
// funnel through the Store in this package.
package status

import "fmt"

// Status is the health state reported for a service.
type Status string

const (
	Up       Status = "up"
	Down     Status = "down"
	Degraded Status = "degraded"
	Unknown  Status = "unknown"
)

// All lists every valid status, in display order.
var All = []Status{Up, Down, Degraded, Unknown}

// Parse converts a string into a Status. The match is exact; anything
// else is an error so bad filter values surface to the caller.
func Parse(s string) (Status, error) {
	switch Status(s) {
	case Up, Down, Degraded, Unknown:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status %q (valid values: up, down, degraded, unknown)", s)
}

// IsProblem reports whether the status is an alerting state.
func (s Status) IsProblem() bool {
	return s == Down || s == Degraded
}

func (s Status) String() string {
	return string(s)
}
