// Package sweep runs the periodic staleness check: services that have
// not checked in within the timeout window are demoted to DOWN and
// their transitions published like any other.
package sweep

import (
	"context"
	"log"
	"time"

	"beacon/internal/events"
	"beacon/internal/status"
	"beacon/internal/tasks"
)

const taskName = "stale-sweeper"

// Sweeper periodically demotes stale services.
type Sweeper struct {
	store    *status.Store
	bus      *events.Bus
	interval time.Duration
	timeout  time.Duration
	tasks    *tasks.Registry
}

// New creates a sweeper that runs every interval and demotes services
// silent for longer than timeout.
func New(store *status.Store, bus *events.Bus, interval, timeout time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		bus:      bus,
		interval: interval,
		timeout:  timeout,
		tasks:    tasks.NewRegistry(),
	}
}

// Start launches the sweep loop. Idempotent.
func (s *Sweeper) Start() {
	if s.tasks.Start(taskName, s.interval, s.sweep) {
		log.Printf("sweep: started (interval=%s, timeout=%s)", s.interval, s.timeout)
	}
}

// Stop cancels the loop and waits for the current sweep to finish.
func (s *Sweeper) Stop() {
	s.tasks.StopAll()
	log.Println("sweep: stopped")
}

// sweep is one iteration. Publishing a transition can never stop the
// remaining transitions from being forwarded: the bus isolates
// subscriber panics, and the loop body itself is panic-contained by
// the task registry.
func (s *Sweeper) sweep(ctx context.Context) {
	stale := s.store.CheckStale(s.timeout)
	for _, tr := range stale {
		log.Printf("sweep: %s went stale (%s -> %s)", tr.Record.ServiceName, tr.Previous, tr.Record.Status)
		s.bus.Publish(events.ForTransition("sweeper", tr.Record, tr.Previous))
	}
}
