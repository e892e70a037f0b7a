// Package config loads the server configuration from environment
// variables. Values in the notifications group act as defaults that
// runtime settings stored in the database can override.
package config

import (
	"os"
	"strconv"
	"strings"
)

// NotificationConfig controls outbound alerting.
type NotificationConfig struct {
	Enabled              bool
	Provider             string // "email" (HTTP mail API) or "shoutrrr"
	APIURL               string
	Recipients           []string
	CooldownMinutes      int
	RetryAttempts        int
	RetryDelaySeconds    int
	SendRecovery         bool
	IncludeDashboardLink bool
	DashboardBaseURL     string
}

// Config is the full server configuration.
type Config struct {
	Port   string
	DBPath string

	SweepIntervalSeconds int
	StaleTimeoutSeconds  int

	Notifications NotificationConfig
}

// Load returns the configuration from environment variables.
func Load() Config {
	return Config{
		Port:                 getEnv("PORT", "8000"),
		DBPath:               getEnv("DB_PATH", "beacon.db"),
		SweepIntervalSeconds: getEnvInt("SWEEP_INTERVAL_SECONDS", 30),
		StaleTimeoutSeconds:  getEnvInt("STALE_TIMEOUT_SECONDS", 150),
		Notifications: NotificationConfig{
			Enabled:              getEnvBool("NOTIFICATIONS_ENABLED", true),
			Provider:             getEnv("NOTIFICATION_PROVIDER", "email"),
			APIURL:               getEnv("NOTIFICATION_API_URL", "http://127.0.0.1:7000"),
			Recipients:           splitList(getEnv("NOTIFICATION_RECIPIENTS", "")),
			CooldownMinutes:      getEnvInt("NOTIFICATION_COOLDOWN_MINUTES", 60),
			RetryAttempts:        getEnvInt("NOTIFICATION_RETRY_ATTEMPTS", 3),
			RetryDelaySeconds:    getEnvInt("NOTIFICATION_RETRY_DELAY", 5),
			SendRecovery:         getEnvBool("SEND_RECOVERY_NOTIFICATIONS", true),
			IncludeDashboardLink: getEnvBool("INCLUDE_DASHBOARD_LINK", true),
			DashboardBaseURL:     getEnv("DASHBOARD_BASE_URL", "http://localhost:8000"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return strings.ToLower(value) == "true"
	}
	return fallback
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
