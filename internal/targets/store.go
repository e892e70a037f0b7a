package targets

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeFormat = "2006-01-02 15:04:05"

// ErrInvalidTarget is returned by Upsert for targets missing a name or
// health URL.
var ErrInvalidTarget = errors.New("target requires a name and a health_url")

// Migrate creates the monitored_targets table.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS monitored_targets (
			name                   TEXT PRIMARY KEY,
			health_url             TEXT NOT NULL,
			check_interval_seconds INTEGER NOT NULL DEFAULT 60,
			timeout_seconds        INTEGER NOT NULL DEFAULT 10,
			expected_status_code   INTEGER NOT NULL DEFAULT 200,
			enabled                INTEGER NOT NULL DEFAULT 1,
			check_response_body    INTEGER NOT NULL DEFAULT 0,
			expected_body_content  TEXT    NOT NULL DEFAULT '',
			created_at             DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at             DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create monitored_targets table: %w", err)
	}
	return nil
}

// Upsert creates or replaces the configuration for a target, applying
// defaults to unset tuning fields first.
func Upsert(db *sql.DB, t *Target) error {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.HealthURL) == "" {
		return ErrInvalidTarget
	}
	t.ApplyDefaults()

	_, err := db.Exec(`
		INSERT INTO monitored_targets
			(name, health_url, check_interval_seconds, timeout_seconds,
			 expected_status_code, enabled, check_response_body, expected_body_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			health_url             = excluded.health_url,
			check_interval_seconds = excluded.check_interval_seconds,
			timeout_seconds        = excluded.timeout_seconds,
			expected_status_code   = excluded.expected_status_code,
			enabled                = excluded.enabled,
			check_response_body    = excluded.check_response_body,
			expected_body_content  = excluded.expected_body_content,
			updated_at             = CURRENT_TIMESTAMP`,
		t.Name, t.HealthURL, t.CheckIntervalSeconds, t.TimeoutSeconds,
		t.ExpectedStatusCode, boolInt(t.Enabled), boolInt(t.CheckResponseBody),
		t.ExpectedBodyContent)
	if err != nil {
		return fmt.Errorf("upsert target %s: %w", t.Name, err)
	}
	return nil
}

// Get retrieves one target by name, or nil if it does not exist.
func Get(db *sql.DB, name string) (*Target, error) {
	row := db.QueryRow(`
		SELECT name, health_url, check_interval_seconds, timeout_seconds,
		       expected_status_code, enabled, check_response_body,
		       expected_body_content, created_at, updated_at
		FROM monitored_targets WHERE name = ?`, name)

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get target %s: %w", name, err)
	}
	return &t, nil
}

// List returns all configured targets ordered by name.
func List(db *sql.DB) ([]Target, error) {
	return list(db, `
		SELECT name, health_url, check_interval_seconds, timeout_seconds,
		       expected_status_code, enabled, check_response_body,
		       expected_body_content, created_at, updated_at
		FROM monitored_targets ORDER BY name`)
}

// ListEnabled returns only enabled targets ordered by name.
func ListEnabled(db *sql.DB) ([]Target, error) {
	return list(db, `
		SELECT name, health_url, check_interval_seconds, timeout_seconds,
		       expected_status_code, enabled, check_response_body,
		       expected_body_content, created_at, updated_at
		FROM monitored_targets WHERE enabled = 1 ORDER BY name`)
}

// Delete removes a target's configuration. It reports whether the
// target existed.
func Delete(db *sql.DB, name string) (bool, error) {
	res, err := db.Exec(`DELETE FROM monitored_targets WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete target %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete target %s: rows affected: %w", name, err)
	}
	return n > 0, nil
}

func list(db *sql.DB, query string) ([]Target, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanTarget(s scannable) (Target, error) {
	var t Target
	var enabled, checkBody int
	var createdAt, updatedAt string

	err := s.Scan(&t.Name, &t.HealthURL, &t.CheckIntervalSeconds,
		&t.TimeoutSeconds, &t.ExpectedStatusCode, &enabled, &checkBody,
		&t.ExpectedBodyContent, &createdAt, &updatedAt)
	if err != nil {
		return t, err
	}
	t.Enabled = enabled == 1
	t.CheckResponseBody = checkBody == 1
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
