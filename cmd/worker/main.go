package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamelog/ingestion/internal/app"
	"gamelog/ingestion/internal/config"
	"gamelog/ingestion/internal/logger"
	"gamelog/ingestion/internal/metrics"
	"gamelog/ingestion/internal/pipeline"
	"gamelog/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	logger.Setup(cfg.AppEnv, cfg.LogLevel)

	log.Info().Msg("Starting game log ingestion worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("reference_team", cfg.ReferenceTeam).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()
	log.Info().Msg("Database connection established")

	// Start metrics HTTP server
	var srv *http.Server
	if cfg.EnableMetrics {
		srv = newMetricsServer(cfg.MetricsPort, a)
		go func() {
			log.Info().Int("port", cfg.MetricsPort).Msg("Starting metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Update system uptime and pool metrics
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				a.DB.PoolStats()
			case <-ctx.Done():
				return
			}
		}
	}()

	sched := scheduler.NewScheduler(cfg.NightlyRefreshCron,
		scheduler.Task{Name: "enrich", Run: func(ctx context.Context) error {
			_, err := a.Enrich(ctx, false)
			return err
		}},
		scheduler.Task{Name: "statcast", Run: func(ctx context.Context) error {
			_, err := a.Statcast(ctx, pipeline.Options{})
			return err
		}},
		scheduler.Task{Name: "export", Run: a.Export},
	)

	if cfg.EnableScheduler {
		if err := sched.Start(ctx, cfg.InitialSyncEnabled); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	} else if cfg.InitialSyncEnabled {
		log.Info().Msg("Running initial data sync...")
		if err := sched.RunNow(ctx); err != nil {
			log.Error().Err(err).Msg("Initial sync failed, continuing anyway...")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down scheduler...")
	if cfg.EnableScheduler {
		sched.Stop()
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	log.Info().Msg("Worker shutdown complete")
}

// newMetricsServer serves Prometheus metrics and a database-backed health check
func newMetricsServer(port int, a *app.App) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		status := map[string]any{"status": "healthy"}
		code := http.StatusOK
		if err := a.DB.Health(r.Context()); err != nil {
			status = map[string]any{"status": "unhealthy", "error": err.Error()}
			code = http.StatusServiceUnavailable
		} else {
			status["db"] = a.DB.PoolStats()
		}

		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
