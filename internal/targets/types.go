// Package targets persists the monitored-target configuration: the
// set of services the poller actively probes. Mutations here must be
// followed by a poller.Manager Apply/Stop call so running loops always
// track the stored configuration.
package targets

import "time"

// Defaults applied to targets that omit the corresponding fields.
const (
	DefaultCheckIntervalSeconds = 60
	DefaultTimeoutSeconds       = 10
	DefaultExpectedStatusCode   = 200
)

// Target configures one actively-polled service.
type Target struct {
	Name                 string    `json:"name"`
	HealthURL            string    `json:"health_url"`
	CheckIntervalSeconds int       `json:"check_interval_seconds"`
	TimeoutSeconds       int       `json:"timeout_seconds"`
	ExpectedStatusCode   int       `json:"expected_status_code"`
	Enabled              bool      `json:"enabled"`
	CheckResponseBody    bool      `json:"check_response_body"`
	ExpectedBodyContent  string    `json:"expected_body_content,omitempty"`
	CreatedAt            time.Time `json:"created_at,omitempty"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
}

// ApplyDefaults fills zero-valued tuning fields with their defaults.
func (t *Target) ApplyDefaults() {
	if t.CheckIntervalSeconds <= 0 {
		t.CheckIntervalSeconds = DefaultCheckIntervalSeconds
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if t.ExpectedStatusCode <= 0 {
		t.ExpectedStatusCode = DefaultExpectedStatusCode
	}
}
