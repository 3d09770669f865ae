// Package app wires configuration, storage, upstream clients and the
// ingestion components together for the commands.
package app

import (
	"context"
	"fmt"
	"strconv"

	"gamelog/ingestion/internal/cache"
	"gamelog/ingestion/internal/client"
	"gamelog/ingestion/internal/config"
	"gamelog/ingestion/internal/export"
	"gamelog/ingestion/internal/normalize"
	"gamelog/ingestion/internal/pipeline"
	"gamelog/ingestion/internal/repository"
	"gamelog/ingestion/internal/resolver"
	"gamelog/ingestion/internal/statcast"

	"github.com/rs/zerolog/log"
)

// App holds the long-lived components shared by the worker and the CLI
type App struct {
	Config   *config.Config
	DB       *repository.Database
	Cache    cache.Cache
	Resolver *resolver.Resolver
	Pipeline *pipeline.Pipeline
	Exporter *export.Exporter

	redis *cache.RedisCache
}

// New connects to the database, ensures the schema and builds every component
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a := &App{Config: cfg, DB: db}
	a.Cache = a.lookupCache()

	statsAPI := client.NewStatsAPI(cfg.StatsAPIBaseURL, cfg.StatsAPITimeout)
	savant := client.NewSavant(client.SavantConfig{
		BaseURL:      cfg.SavantBaseURL,
		ExportPath:   cfg.SavantExportPath,
		Timeout:      cfg.SavantTimeout,
		FeedTimeout:  cfg.ClipFeedTimeout,
		FeedAttempts: cfg.ClipFeedAttempts,
		FeedBackoff:  cfg.ClipFeedBackoff,
	})

	source := statcast.NewChain(
		statcast.NewSavantSource(savant),
		statcast.NewWinProbabilitySource(statsAPI),
	)
	clips := statcast.NewClipMapper(savant, a.Cache)
	normalizer := normalize.New(statsAPI, a.Cache, clips, cfg.ClipBaseURL)

	a.Resolver = resolver.New(statsAPI, cfg.GameDelay)
	a.Pipeline = pipeline.New(db.Games, db.Events, source, normalizer, cfg.GameDelay)
	a.Exporter = export.New(db.Games, db.Events, db.Reports, export.Options{
		Dir:            cfg.ExportDir,
		ReferenceTeam:  cfg.ReferenceTeam,
		IncludeSuspect: cfg.IncludeSuspectWPA,
	})

	return a, nil
}

// lookupCache returns the shared Redis cache when enabled and reachable,
// otherwise a bounded in-memory cache
func (a *App) lookupCache() cache.Cache {
	cfg := a.Config
	if cfg.RedisEnabled {
		rc, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err == nil {
			a.redis = rc
			log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
			return rc
		}
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing with in-memory cache")
	}

	return cache.NewMemoryCache(cache.WithMaxSize(cfg.CacheMaxSize), cache.WithName("lookups"))
}

// Enrich resolves MLB ids and final scores for attended games
func (a *App) Enrich(ctx context.Context, force bool) (resolver.EnrichSummary, error) {
	return a.Resolver.Enrich(ctx, a.DB.Games, force)
}

// Statcast runs the ingestion pipeline
func (a *App) Statcast(ctx context.Context, opts pipeline.Options) (pipeline.Summary, error) {
	return a.Pipeline.Run(ctx, opts)
}

// Export writes the JSON datasets
func (a *App) Export(ctx context.Context) error {
	return a.Exporter.Run(ctx)
}

// Integrity runs the data quality checks
func (a *App) Integrity(ctx context.Context) (*repository.IntegrityReport, error) {
	return a.DB.Reports.Integrity(ctx)
}

// Close releases the cache and database connections
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	a.DB.Close()
}
