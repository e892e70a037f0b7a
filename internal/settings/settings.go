// Package settings stores runtime-adjustable configuration in the
// database as typed key/value pairs. Environment variables seed the
// defaults on first boot; values changed through the API win on
// subsequent boots.
package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Setting is one stored configuration value.
type Setting struct {
	Category    string    `json:"category"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	ValueType   string    `json:"value_type"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Init creates the settings table and inserts the given defaults where
// no value exists yet.
func Init(db *sql.DB, defaults []Setting) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			category   TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			value_type TEXT DEFAULT 'string',
			description TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(category, key)
		);
		CREATE INDEX IF NOT EXISTS idx_settings_category ON settings(category);`)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	for _, s := range defaults {
		if err := validateValue(s.ValueType, s.Value); err != nil {
			return fmt.Errorf("invalid default for %s.%s: %w", s.Category, s.Key, err)
		}
		_, err := db.Exec(`
			INSERT OR IGNORE INTO settings (category, key, value, value_type, description)
			VALUES (?, ?, ?, ?, ?)`,
			s.Category, s.Key, s.Value, s.ValueType, s.Description)
		if err != nil {
			return fmt.Errorf("failed to insert default setting %s.%s: %w", s.Category, s.Key, err)
		}
	}
	return nil
}

// Get returns the stored value for category/key. The second result is
// false when the setting does not exist.
func Get(db *sql.DB, category, key string) (string, bool, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM settings WHERE category = ? AND key = ?`,
		category, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s.%s: %w", category, key, err)
	}
	return value, true, nil
}

// GetBool returns a bool setting, or fallback when absent or invalid.
func GetBool(db *sql.DB, category, key string, fallback bool) bool {
	value, ok, err := Get(db, category, key)
	if err != nil || !ok {
		return fallback
	}
	return value == "true"
}

// GetInt returns an int setting, or fallback when absent or invalid.
func GetInt(db *sql.DB, category, key string, fallback int) int {
	value, ok, err := Get(db, category, key)
	if err != nil || !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// GetString returns a string setting, or fallback when absent.
func GetString(db *sql.DB, category, key, fallback string) string {
	value, ok, err := Get(db, category, key)
	if err != nil || !ok {
		return fallback
	}
	return value
}

// Set updates an existing setting, validating the value against the
// stored type.
func Set(db *sql.DB, category, key, value string) error {
	var valueType string
	err := db.QueryRow(`SELECT value_type FROM settings WHERE category = ? AND key = ?`,
		category, key).Scan(&valueType)
	if err == sql.ErrNoRows {
		return fmt.Errorf("unknown setting %s.%s", category, key)
	}
	if err != nil {
		return fmt.Errorf("set setting %s.%s: %w", category, key, err)
	}

	if err := validateValue(valueType, value); err != nil {
		return fmt.Errorf("setting %s.%s: %w", category, key, err)
	}

	_, err = db.Exec(`
		UPDATE settings SET value = ?, updated_at = CURRENT_TIMESTAMP
		WHERE category = ? AND key = ?`, value, category, key)
	if err != nil {
		return fmt.Errorf("set setting %s.%s: %w", category, key, err)
	}
	return nil
}

// GetCategory returns all settings within a category.
func GetCategory(db *sql.DB, category string) ([]Setting, error) {
	rows, err := db.Query(`
		SELECT category, key, value, value_type, COALESCE(description, ''), updated_at
		FROM settings WHERE category = ? ORDER BY key`, category)
	if err != nil {
		return nil, fmt.Errorf("get settings for %s: %w", category, err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		var updatedAt string
		if err := rows.Scan(&s.Category, &s.Key, &s.Value, &s.ValueType,
			&s.Description, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		s.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func validateValue(valueType, value string) error {
	switch valueType {
	case "int":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("value must be an integer")
		}
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("value must be true or false")
		}
	}
	return nil
}
