package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"beacon/internal/config"
	"beacon/internal/db"
	"beacon/internal/events"
	"beacon/internal/notify"
	"beacon/internal/poller"
	"beacon/internal/server"
	"beacon/internal/settings"
	"beacon/internal/status"
	"beacon/internal/sweep"
	"beacon/internal/targets"
)

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := targets.Migrate(database); err != nil {
		log.Fatalf("migrate targets: %v", err)
	}
	if err := notify.Migrate(database); err != nil {
		log.Fatalf("migrate notification log: %v", err)
	}
	if err := settings.Init(database, notificationDefaults(cfg.Notifications)); err != nil {
		log.Fatalf("init settings: %v", err)
	}

	store := status.NewStore()
	bus := events.NewBus()

	gate := notify.NewGate(gateSettings(database, cfg.Notifications), buildSender(cfg.Notifications), database)
	dispatcher := notify.NewDispatcher(bus, gate)
	dispatcher.Start()

	manager := poller.NewManager(store, bus)
	enabled, err := targets.ListEnabled(database)
	if err != nil {
		log.Fatalf("load targets: %v", err)
	}
	manager.Sync(enabled)
	log.Printf("main: monitoring %d enabled targets", len(enabled))

	sweeper := sweep.New(store, bus,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
		time.Duration(cfg.StaleTimeoutSeconds)*time.Second)
	sweeper.Start()

	hub := server.NewEventHub(bus)
	api := server.New(database, store, bus, gate, manager, hub)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.Routes(),
	}

	go func() {
		log.Printf("main: listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("main: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("main: http shutdown: %v", err)
	}

	manager.StopAll()
	sweeper.Stop()
	dispatcher.Stop()
	hub.CloseAll()

	log.Println("main: shutdown complete")
}

// notificationDefaults seeds the settings table from the environment on
// first boot. Values already stored win.
func notificationDefaults(nc config.NotificationConfig) []settings.Setting {
	return []settings.Setting{
		{Category: "notifications", Key: "enabled",
			Value: strconv.FormatBool(nc.Enabled), ValueType: "bool",
			Description: "Send notifications on status transitions"},
		{Category: "notifications", Key: "recipients",
			Value: strings.Join(nc.Recipients, ","), ValueType: "string",
			Description: "Comma-separated notification recipients"},
		{Category: "notifications", Key: "cooldown_minutes",
			Value: strconv.Itoa(nc.CooldownMinutes), ValueType: "int",
			Description: "Minimum minutes between repeated alerts per service"},
		{Category: "notifications", Key: "send_recovery",
			Value: strconv.FormatBool(nc.SendRecovery), ValueType: "bool",
			Description: "Also notify when a service recovers"},
	}
}

// gateSettings builds the effective notification settings: stored
// values first, environment defaults as fallback.
func gateSettings(database *sql.DB, nc config.NotificationConfig) notify.Settings {
	recipients := nc.Recipients
	if stored := settings.GetString(database, "notifications", "recipients", ""); stored != "" {
		recipients = splitRecipients(stored)
	}

	return notify.Settings{
		Enabled:              settings.GetBool(database, "notifications", "enabled", nc.Enabled),
		Recipients:           recipients,
		Cooldown:             time.Duration(settings.GetInt(database, "notifications", "cooldown_minutes", nc.CooldownMinutes)) * time.Minute,
		SendRecovery:         settings.GetBool(database, "notifications", "send_recovery", nc.SendRecovery),
		IncludeDashboardLink: nc.IncludeDashboardLink,
		DashboardBaseURL:     nc.DashboardBaseURL,
	}
}

func splitRecipients(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildSender(nc config.NotificationConfig) notify.Sender {
	if nc.Provider == "shoutrrr" {
		log.Println("main: using shoutrrr notification provider")
		return notify.ShoutrrrSender{}
	}
	log.Printf("main: using email notification provider (%s)", nc.APIURL)
	return notify.NewEmailAPISender(nc.APIURL, nc.RetryAttempts,
		time.Duration(nc.RetryDelaySeconds)*time.Second)
}
