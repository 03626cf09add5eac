package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/market-screener/internal/config"
	"github.com/aristath/market-screener/internal/database"
	"github.com/aristath/market-screener/internal/modules/backtest"
	"github.com/aristath/market-screener/internal/modules/screening"
	"github.com/aristath/market-screener/internal/modules/universe"
	"github.com/aristath/market-screener/internal/scheduler"
	"github.com/aristath/market-screener/internal/server"
	"github.com/aristath/market-screener/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet, fall back to stderr
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Market Screener")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Universe store owns the snapshot and price schema
	store, err := universe.NewStore(db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize universe store")
	}

	presets := map[string]screening.Preset{}
	if cfg.PresetsPath != "" {
		presets, err = screening.LoadPresets(cfg.PresetsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PresetsPath).Msg("Failed to load screening presets")
		}
		log.Info().Int("count", len(presets)).Msg("Screening presets loaded")
	}

	screener := screening.NewSchlossScreener()
	engine := backtest.NewEngine(store, screener, nil, log)

	cache, err := backtest.NewResultCache(db, time.Duration(cfg.ResultCacheTTLDays)*24*time.Hour, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize result cache")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Nightly eviction of expired cached results
	if err := sched.AddJob("0 0 3 * * *", scheduler.NewCacheCleanupJob(cache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		Cfg:      cfg,
		Store:    store,
		Engine:   engine,
		Cache:    cache,
		Screener: screener,
		Presets:  presets,
		DevMode:  cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
