package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beacon/internal/status"
	"beacon/internal/targets"
)

func testTarget(url string) targets.Target {
	return targets.Target{
		Name:               "svc",
		HealthURL:          url,
		TimeoutSeconds:     2,
		ExpectedStatusCode: 200,
		Enabled:            true,
	}
}

func TestCheckOnceHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChecker()
	st, msg, meta := c.CheckOnce(context.Background(), testTarget(srv.URL))

	if st != status.Up {
		t.Errorf("status = %s, want up (msg: %s)", st, msg)
	}
	if !strings.Contains(msg, "200") {
		t.Errorf("message should name the status code: %q", msg)
	}
	if meta["health_url"] != srv.URL {
		t.Errorf("metadata missing health_url: %v", meta)
	}
	if meta["http_status_code"] != "200" {
		t.Errorf("metadata http_status_code = %q", meta["http_status_code"])
	}
	if meta["response_time_ms"] == "" {
		t.Error("metadata missing response_time_ms")
	}
	if meta["checked_at"] == "" {
		t.Error("metadata missing checked_at")
	}
	if _, err := time.Parse(time.RFC3339, meta["checked_at"]); err != nil {
		t.Errorf("checked_at is not RFC 3339: %q", meta["checked_at"])
	}
}

func TestCheckOnceUnexpectedStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewChecker()
	st, msg, meta := c.CheckOnce(context.Background(), testTarget(srv.URL))

	if st != status.Degraded {
		t.Errorf("status = %s, want degraded", st)
	}
	if !strings.Contains(msg, "503") || !strings.Contains(msg, "200") {
		t.Errorf("message should name received and expected codes: %q", msg)
	}
	if meta["http_status_code"] != "503" {
		t.Errorf("metadata http_status_code = %q", meta["http_status_code"])
	}
}

func TestCheckOnceBodyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"ready"}`))
	}))
	defer srv.Close()

	c := NewChecker()

	tgt := testTarget(srv.URL)
	tgt.CheckResponseBody = true
	tgt.ExpectedBodyContent = "ready"
	if st, msg, _ := c.CheckOnce(context.Background(), tgt); st != status.Up {
		t.Errorf("matching body: status = %s (%s), want up", st, msg)
	}

	tgt.ExpectedBodyContent = "healthy"
	st, msg, _ := c.CheckOnce(context.Background(), tgt)
	if st != status.Degraded {
		t.Errorf("missing body content: status = %s, want degraded", st)
	}
	if !strings.Contains(msg, "missing expected content") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestCheckOnceTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	c := NewChecker()
	tgt := testTarget(srv.URL)
	tgt.TimeoutSeconds = 1

	st, msg, meta := c.CheckOnce(context.Background(), tgt)
	if st != status.Down {
		t.Errorf("status = %s, want down", st)
	}
	if !strings.Contains(msg, "1") {
		t.Errorf("message should contain the timeout value: %q", msg)
	}
	if meta["error"] != "timeout" {
		t.Errorf("metadata error = %q, want timeout", meta["error"])
	}
	if meta["response_time_ms"] != "" {
		t.Errorf("timeout outcome should not carry timing metadata: %v", meta)
	}
}

func TestCheckOnceConnectionRefused(t *testing.T) {
	// Grab a port that nothing is listening on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewChecker()
	st, msg, meta := c.CheckOnce(context.Background(), testTarget(url))

	if st != status.Down {
		t.Errorf("status = %s, want down", st)
	}
	if msg != "Cannot connect to service" {
		t.Errorf("unexpected message: %q", msg)
	}
	if meta["error"] != "connection_error" {
		t.Errorf("metadata error = %q, want connection_error", meta["error"])
	}
	if meta["health_url"] != url {
		t.Errorf("metadata should still carry the probed URL: %v", meta)
	}
}
