package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldops/jobcard/internal/api"
	"github.com/fieldops/jobcard/internal/config"
	"github.com/fieldops/jobcard/internal/db"
	"github.com/fieldops/jobcard/internal/enhance"
	"github.com/fieldops/jobcard/internal/events"
	"github.com/fieldops/jobcard/internal/identity"
	"github.com/fieldops/jobcard/internal/jobs"
	"github.com/fieldops/jobcard/internal/logger"
	"github.com/fieldops/jobcard/internal/objectstore"
	"github.com/fieldops/jobcard/internal/websocket"
)

func main() {
	logger.Init("jobcard")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	database, err := db.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpen, cfg.Database.MaxIdle)
	cancel()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	api.SetDBConnection(database)

	store := db.NewStore(database)
	objects := objectstore.NewFileStore(cfg.ObjectStore.Dir, cfg.ObjectStore.BaseURL)

	var publisher jobs.TransitionPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := events.Connect(cfg.NATSURL)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("NATS unavailable, transition events disabled")
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	var enhancer enhance.Enhancer
	if cfg.Enhancer.Endpoint != "" {
		enhancer = enhance.NewClient(cfg.Enhancer.Endpoint, cfg.Enhancer.Timeout)
	}

	provider := identity.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.AdminEmails)
	controller := jobs.NewController(store, objects, publisher)

	hub := websocket.NewHub()
	go hub.Run()

	server := api.NewServer(cfg.ListenAddr, controller, provider, enhancer, hub)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("Server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Forced shutdown")
	}
	logger.Logger.Info().Msg("Server stopped")
}
