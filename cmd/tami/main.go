package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/tami/internal/api"
	"github.com/MikeSquared-Agency/tami/internal/bus"
	"github.com/MikeSquared-Agency/tami/internal/config"
	"github.com/MikeSquared-Agency/tami/internal/conversation"
	"github.com/MikeSquared-Agency/tami/internal/draft"
	"github.com/MikeSquared-Agency/tami/internal/processor"
	"github.com/MikeSquared-Agency/tami/internal/store"
	"github.com/MikeSquared-Agency/tami/internal/strategy"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("tami starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database (optional, leads are logged but not persisted without it)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, running without lead persistence")
	}

	// NATS (optional, without it the HTTP tool surface still works)
	var busClient *bus.Client
	if cfg.NatsURL != "" {
		var err error
		busClient, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer busClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set, running without the utterance feed")
	}

	// Telemetry: always to the log, additionally to the bus when connected.
	emitters := telemetry.Multi{telemetry.LogEmitter{}}
	if busClient != nil {
		emitters = append(emitters, telemetry.BusEmitter{Bus: busClient, Subject: bus.SubjectTelemetry})
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	strategyCfg := strategy.Resolve(cfg.LeadStrategy, rng, emitters)
	slog.Info("strategy resolved",
		"strategy", strategyCfg.Strategy,
		"incremental", strategyCfg.IncrementalEnabled,
		"live_emails", strategyCfg.LiveEmailsEnabled,
	)

	registry := draft.NewRegistry(emitters)
	tracker := conversation.NewTracker(emitters, rng)

	var pub processor.Publisher
	if busClient != nil {
		pub = busClient
	}
	proc := processor.New(registry, tracker, db, pub, emitters, strategyCfg, slog.Default())

	// Utterance feed from the voice platform.
	if busClient != nil {
		if err := busClient.Subscribe(bus.SubjectUtterance, proc.HandleUtterance); err != nil {
			slog.Error("failed to subscribe to utterances", "error", err)
			os.Exit(1)
		}
	}

	// Periodic draft sweep.
	ttl := time.Duration(cfg.DraftTTLHours) * time.Hour
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := registry.CleanupOlderThan(ttl); n > 0 {
					slog.Info("swept stale drafts", "count", n)
				}
			}
		}
	}()

	// HTTP API
	srv := api.NewServer(cfg.Port, proc, emitters, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("tami ready", "port", cfg.Port, "strategy", strategyCfg.Strategy)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("tami stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
