package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"beacon/internal/events"
	"beacon/internal/notify"
	"beacon/internal/poller"
	"beacon/internal/settings"
	"beacon/internal/status"
	"beacon/internal/targets"
)

type mockSender struct {
	mu   sync.Mutex
	sent int
	fail bool
}

func (m *mockSender) Send(recipient, subject, plain, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	if m.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func (m *mockSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

type testEnv struct {
	srv    *httptest.Server
	db     *sql.DB
	store  *status.Store
	bus    *events.Bus
	gate   *notify.Gate
	sender *mockSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := targets.Migrate(db); err != nil {
		t.Fatalf("migrate targets: %v", err)
	}
	if err := notify.Migrate(db); err != nil {
		t.Fatalf("migrate notify: %v", err)
	}
	defaults := []settings.Setting{
		{Category: "notifications", Key: "enabled", Value: "true", ValueType: "bool"},
		{Category: "notifications", Key: "recipients", Value: "ops@example.com", ValueType: "string"},
		{Category: "notifications", Key: "cooldown_minutes", Value: "60", ValueType: "int"},
		{Category: "notifications", Key: "send_recovery", Value: "true", ValueType: "bool"},
	}
	if err := settings.Init(db, defaults); err != nil {
		t.Fatalf("init settings: %v", err)
	}

	store := status.NewStore()
	bus := events.NewBus()
	sender := &mockSender{}
	gate := notify.NewGate(notify.Settings{
		Enabled:      true,
		Recipients:   []string{"ops@example.com"},
		Cooldown:     time.Hour,
		SendRecovery: true,
	}, sender, db)
	manager := poller.NewManager(store, bus)
	t.Cleanup(manager.StopAll)

	s := New(db, store, bus, gate, manager, nil)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, db: db, store: store, bus: bus, gate: gate, sender: sender}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, data
}

func decode(t *testing.T, data []byte, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, into); err != nil {
		t.Fatalf("decode response %s: %v", data, err)
	}
}
