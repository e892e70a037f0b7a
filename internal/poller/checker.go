// Package poller actively probes monitored targets over HTTP and
// writes the classified results into the status store. One loop runs
// per enabled target; all loops share a single pooled HTTP client.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"beacon/internal/status"
	"beacon/internal/targets"
)

// maxBodyBytes caps how much of a health response is read for the
// body-content check.
const maxBodyBytes = 1 << 20

// Checker performs single health probes. Safe for concurrent use.
type Checker struct {
	client *http.Client
}

// NewChecker creates a checker with a shared pooled transport.
// Per-probe timeouts come from each target, not the client.
func NewChecker() *Checker {
	return &Checker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// CheckOnce probes the target once and classifies the outcome. It never
// returns an error: probe failures become a DOWN status with a
// descriptive message, so the periodic loop and the manual "check now"
// path behave identically.
func (c *Checker) CheckOnce(ctx context.Context, t targets.Target) (status.Status, string, map[string]string) {
	t.ApplyDefaults()

	metadata := map[string]string{
		"health_url": t.HealthURL,
		"checked_at": time.Now().UTC().Format(time.RFC3339),
	}

	timeout := time.Duration(t.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.HealthURL, nil)
	if err != nil {
		metadata["error"] = "unexpected_error"
		return status.Down, fmt.Sprintf("Unexpected error: %v", err), metadata
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded),
			errors.As(err, &urlErr) && urlErr.Timeout():
			metadata["error"] = "timeout"
			return status.Down, fmt.Sprintf("Health check timed out after %ds", t.TimeoutSeconds), metadata
		case errors.As(err, &urlErr):
			metadata["error"] = "connection_error"
			return status.Down, "Cannot connect to service", metadata
		default:
			metadata["error"] = "unexpected_error"
			return status.Down, fmt.Sprintf("Unexpected error: %v", err), metadata
		}
	}
	defer resp.Body.Close()

	metadata["http_status_code"] = strconv.Itoa(resp.StatusCode)
	metadata["response_time_ms"] = fmt.Sprintf("%.2f", time.Since(start).Seconds()*1000)

	if resp.StatusCode != t.ExpectedStatusCode {
		return status.Degraded,
			fmt.Sprintf("HTTP %d (expected %d)", resp.StatusCode, t.ExpectedStatusCode),
			metadata
	}

	if t.CheckResponseBody && t.ExpectedBodyContent != "" {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			metadata["error"] = "unexpected_error"
			return status.Down, fmt.Sprintf("Unexpected error reading response body: %v", err), metadata
		}
		if !strings.Contains(string(body), t.ExpectedBodyContent) {
			return status.Degraded, "Response body missing expected content", metadata
		}
	}

	return status.Up, fmt.Sprintf("Health check passed (%d)", resp.StatusCode), metadata
}
