package notify

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Delivery is one row of the persisted notification log.
type Delivery struct {
	ID           string    `json:"id"`
	ServiceName  string    `json:"service_name"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const timeFormat = "2006-01-02 15:04:05"

// Migrate creates the notification log table.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notification_log (
			id            TEXT PRIMARY KEY,
			service_name  TEXT NOT NULL,
			recipient     TEXT NOT NULL,
			subject       TEXT NOT NULL,
			status        TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create notification_log table: %w", err)
	}
	return nil
}

// RecordDelivery appends one delivery outcome to the log.
func RecordDelivery(db *sql.DB, service, recipient, subject string, sendErr error) error {
	deliveryStatus := "sent"
	errMsg := ""
	if sendErr != nil {
		deliveryStatus = "failed"
		errMsg = sendErr.Error()
	}

	_, err := db.Exec(`
		INSERT INTO notification_log (id, service_name, recipient, subject, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), service, recipient, subject, deliveryStatus, errMsg,
		time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// RecentDeliveries returns the newest log rows, most recent first.
func RecentDeliveries(db *sql.DB, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, service_name, recipient, subject, status, error_message, created_at
		FROM notification_log
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var created string
		if err := rows.Scan(&d.ID, &d.ServiceName, &d.Recipient, &d.Subject, &d.Status, &d.ErrorMessage, &created); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.CreatedAt = parseTime(created)
		out = append(out, d)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
