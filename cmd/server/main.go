// Package main is the entry point for the Folio portfolio dashboard.
// The service reads a declarative portfolio description from Vercel Edge
// Config, prices each holding via Alpha Vantage with a two-layer cache
// (durable per-symbol quotes, full-payload snapshot), and serves the
// aggregated result as a JSON API plus an embedded single-page frontend.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/alphavantage"
	"github.com/aristath/folio/internal/clients/edgeconfig"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	"github.com/aristath/folio/internal/scheduler"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Folio")

	// Client data database holds both caches: per-symbol quotes and the
	// payload snapshot. It is ephemeral by contract, hence the cache profile.
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "clientdata",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer clientDataDB.Close()

	if err := clientdata.InitSchema(clientDataDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize client data schema")
	}

	cacheRepo := clientdata.NewRepository(clientDataDB.Conn())

	// External collaborators
	configLoader := edgeconfig.NewClient(cfg.EdgeConfigURL, cfg.EdgeConfigToken, log)
	quoteClient := alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)

	// Caches and the reconciliation pipeline
	quoteCache := portfolio.NewQuoteCache(cacheRepo, cfg.QuoteTTL, log)
	payloadCache, err := portfolio.NewPayloadCache(clientDataDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize payload cache")
	}

	service := portfolio.NewService(
		configLoader,
		quoteClient,
		quoteCache,
		payloadCache,
		cfg.PayloadTTL,
		log,
	)

	// Background jobs: reclaim expired cache rows daily, keep the payload
	// snapshot warm hourly.
	sched := scheduler.New(log)
	if err := sched.AddJob("@daily", clientdata.NewCleanupJob(cacheRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	if err := sched.AddJob("@hourly", portfolio.NewRefreshJob(service, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:               log,
		Cfg:               cfg,
		PortfolioHandlers: portfoliohandlers.NewHandler(service, log),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}

	log.Info().Msg("Folio stopped")
}
