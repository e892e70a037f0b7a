package poller

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"beacon/internal/events"
	"beacon/internal/status"
	"beacon/internal/targets"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestManagerWritesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := status.NewStore()
	bus := events.NewBus()
	m := NewManager(store, bus)
	defer m.StopAll()

	m.Start(targets.Target{
		Name: "svc", HealthURL: srv.URL, Enabled: true,
		CheckIntervalSeconds: 3600, TimeoutSeconds: 2, ExpectedStatusCode: 200,
	})

	waitFor(t, func() bool { return store.Get("svc") != nil }, "no record written after Start")

	rec := store.Get("svc")
	if rec.Status != status.Up {
		t.Errorf("recorded status = %s, want up", rec.Status)
	}
}

func TestManagerPublishesTransitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := status.NewStore()
	// Seed a DOWN record so the first probe result is a transition.
	store.Update("svc", status.Down, "", nil)

	bus := events.NewBus()
	var mu sync.Mutex
	var got []events.Event
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	m := NewManager(store, bus)
	defer m.StopAll()

	m.Start(targets.Target{
		Name: "svc", HealthURL: srv.URL, Enabled: true,
		CheckIntervalSeconds: 3600, TimeoutSeconds: 2, ExpectedStatusCode: 200,
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, "no transition event published")

	mu.Lock()
	defer mu.Unlock()
	e := got[0]
	if e.Type != events.ServiceRecovered || e.Previous != status.Down || e.Source != "poller" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestManagerStartIdempotentAndSkipsDisabled(t *testing.T) {
	store := status.NewStore()
	m := NewManager(store, events.NewBus())
	defer m.StopAll()

	tgt := targets.Target{
		Name: "svc", HealthURL: "http://127.0.0.1:1/health", Enabled: true,
		CheckIntervalSeconds: 3600,
	}
	if !m.Start(tgt) {
		t.Error("first Start returned false")
	}
	if m.Start(tgt) {
		t.Error("duplicate Start returned true")
	}

	disabled := tgt
	disabled.Name = "other"
	disabled.Enabled = false
	if m.Start(disabled) {
		t.Error("Start of disabled target returned true")
	}
	if m.Running("other") {
		t.Error("disabled target has a running loop")
	}
}

func TestManagerApplyTracksConfig(t *testing.T) {
	store := status.NewStore()
	m := NewManager(store, events.NewBus())
	defer m.StopAll()

	tgt := targets.Target{
		Name: "svc", HealthURL: "http://127.0.0.1:1/health", Enabled: true,
		CheckIntervalSeconds: 3600,
	}
	m.Start(tgt)
	waitFor(t, func() bool { return m.Running("svc") }, "loop not running after Start")

	tgt.Enabled = false
	m.Apply(tgt)
	if m.Running("svc") {
		t.Error("loop still running after Apply with enabled=false")
	}

	tgt.Enabled = true
	m.Apply(tgt)
	if !m.Running("svc") {
		t.Error("loop not running after Apply with enabled=true")
	}
}

func TestManagerStop(t *testing.T) {
	store := status.NewStore()
	m := NewManager(store, events.NewBus())

	m.Start(targets.Target{
		Name: "svc", HealthURL: "http://127.0.0.1:1/health", Enabled: true,
		CheckIntervalSeconds: 3600,
	})

	if !m.Stop("svc") {
		t.Error("Stop returned false for a running loop")
	}
	if m.Stop("svc") {
		t.Error("Stop returned true for an already-stopped loop")
	}
}
