package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/mbaizhakyp/floodwise/internal/cache"
	"github.com/mbaizhakyp/floodwise/internal/config"
	"github.com/mbaizhakyp/floodwise/internal/embedding"
	"github.com/mbaizhakyp/floodwise/internal/llm"
	"github.com/mbaizhakyp/floodwise/internal/maps"
	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/pipeline"
	"github.com/mbaizhakyp/floodwise/internal/retrieval"
	"github.com/mbaizhakyp/floodwise/internal/selection"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// app holds the assembled pipeline and the resources it owns.
type app struct {
	pipeline *pipeline.Pipeline
	metrics  *observability.Metrics
	db       *sql.DB
	cache    cache.Client
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// buildApp wires every collaborator from configuration. withMetrics is off
// for one-shot CLI runs and on for the server.
func buildApp(cfg *config.Config, logger *observability.Logger, withMetrics bool) (*app, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database DSN is required (set DATABASE_URL or database.dsn)")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	cacheClient, err := buildCache(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	var metrics *observability.Metrics
	if withMetrics {
		metrics = observability.NewMetrics()
	}

	completer, err := llm.NewClient(llm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.ChatModel,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		cacheClient.Close()
		db.Close()
		return nil, fmt.Errorf("create chat client: %w", err)
	}

	embedder, err := embedding.NewClient(embedding.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.EmbeddingModel,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		cacheClient.Close()
		db.Close()
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	mapsClient := maps.NewClient(cfg.Maps.APIKey, cfg.Maps.GeocodeURL, cfg.Maps.WeatherURL, cfg.Maps.Timeout, logger)
	geocoder := maps.NewCachedGeocoder(mapsClient, cacheClient, logger, metrics)

	retriever := retrieval.NewService(retrieval.Deps{
		Counties:       storage.NewCountyRepository(db),
		Precipitation:  storage.NewPrecipitationRepository(db),
		FloodEvents:    storage.NewFloodEventRepository(db),
		SVI:            storage.NewSVIRepository(db),
		Geocoder:       geocoder,
		Forecaster:     mapsClient,
		SVIReleaseYear: cfg.Selection.SVIReleaseYear,
		Logger:         logger,
	})

	classifier := selection.NewIntentClassifier(completer, logger, metrics)
	sviFilter := selection.NewSVIFilter(embedder, loadSVIContext(cfg, logger), logger, metrics)
	selector := selection.NewSelector(classifier, sviFilter, logger)

	p := pipeline.New(pipeline.Deps{
		Extractor:            pipeline.NewExtractor(completer, logger),
		Geocoder:             geocoder,
		Retriever:            retriever,
		Selector:             selector,
		Completer:            completer,
		DefaultForecastHours: cfg.Selection.DefaultForecastHours,
		Logger:               logger,
		Metrics:              metrics,
	})

	return &app{pipeline: p, metrics: metrics, db: db, cache: cacheClient}, nil
}

func buildCache(cfg *config.Config, logger *observability.Logger) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return client, nil
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}

// loadSVIContext reads the domain-description text that enriches SVI
// embeddings. A missing file degrades to plain variable names.
func loadSVIContext(cfg *config.Config, logger *observability.Logger) string {
	data, err := os.ReadFile(cfg.Selection.SVIContextPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Selection.SVIContextPath).
			Msg("svi context file not loaded, filtering on bare variable names")
		return ""
	}
	return strings.TrimSpace(string(data))
}
