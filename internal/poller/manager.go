package poller

import (
	"context"
	"log"
	"time"

	"beacon/internal/events"
	"beacon/internal/status"
	"beacon/internal/targets"
	"beacon/internal/tasks"
)

// Manager runs one periodic check loop per enabled target. Loops are
// keyed by target name and must be kept in sync with the configuration
// store: every configuration mutation is followed by Apply or Stop.
type Manager struct {
	store   *status.Store
	bus     *events.Bus
	checker *Checker
	tasks   *tasks.Registry
}

// NewManager creates a manager writing probe results into store and
// publishing transitions on bus.
func NewManager(store *status.Store, bus *events.Bus) *Manager {
	return &Manager{
		store:   store,
		bus:     bus,
		checker: NewChecker(),
		tasks:   tasks.NewRegistry(),
	}
}

// Start begins the check loop for a target. Disabled targets are
// ignored. Starting an already-running target is a no-op; it reports
// whether a new loop was started.
func (m *Manager) Start(t targets.Target) bool {
	if !t.Enabled {
		return false
	}
	t.ApplyDefaults()

	interval := time.Duration(t.CheckIntervalSeconds) * time.Second
	started := m.tasks.Start(t.Name, interval, func(ctx context.Context) {
		m.runCheck(ctx, t)
	})
	if started {
		log.Printf("poller: started monitoring %s every %s", t.Name, interval)
	}
	return started
}

// Stop cancels the loop for one target and waits for any in-flight
// probe to finish. It reports whether a loop was running.
func (m *Manager) Stop(name string) bool {
	stopped := m.tasks.Stop(name)
	if stopped {
		log.Printf("poller: stopped monitoring %s", name)
	}
	return stopped
}

// StopAll cancels every loop and waits for them.
func (m *Manager) StopAll() {
	m.tasks.StopAll()
	log.Println("poller: stopped all monitoring tasks")
}

// Apply restarts the loop for a target after a configuration change.
// Disabled targets end up with no loop running.
func (m *Manager) Apply(t targets.Target) {
	m.tasks.Stop(t.Name)
	if t.Enabled {
		m.Start(t)
	}
}

// Sync starts loops for every enabled target in the list.
func (m *Manager) Sync(ts []targets.Target) {
	for _, t := range ts {
		m.Start(t)
	}
}

// Running reports whether a loop exists for the named target.
func (m *Manager) Running(name string) bool {
	return m.tasks.Running(name)
}

// CheckOnce performs a single synchronous probe of a target without
// touching the store. It is the same classification the loops use.
func (m *Manager) CheckOnce(ctx context.Context, t targets.Target) (status.Status, string, map[string]string) {
	return m.checker.CheckOnce(ctx, t)
}

// runCheck is one loop iteration: probe, store the result, publish a
// transition event when the status changed. Probe failures are results,
// not errors, so the loop never aborts.
func (m *Manager) runCheck(ctx context.Context, t targets.Target) {
	st, message, metadata := m.checker.CheckOnce(ctx, t)

	rec, previous, err := m.store.Update(t.Name, st, message, metadata)
	if err != nil {
		log.Printf("poller: failed to store result for %s: %v", t.Name, err)
		return
	}
	if previous != nil {
		m.bus.Publish(events.ForTransition("poller", rec, *previous))
	}
}
