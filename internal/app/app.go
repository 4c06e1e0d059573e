// Package app wires the command line application together.
package app

import (
	"database/sql"

	"go.uber.org/zap"

	"meterflow/internal/config"
	"meterflow/internal/d0010"
	"meterflow/internal/db"
	"meterflow/internal/digestcache"
	"meterflow/internal/importer"
	"meterflow/internal/repository"
)

// App wires meterflow dependencies.
type App struct {
	Config      *config.Config
	DB          *sql.DB
	Cache       *digestcache.Cache
	Importer    *importer.Importer
	FlowFiles   *repository.FlowFileRepository
	MeterPoints *repository.MeterPointRepository
	Meters      *repository.MeterRepository
	Readings    *repository.ReadingRepository
	logger      *zap.Logger
}

// New constructs application components. The digest cache is skipped
// when no redis address is configured; an unreachable redis downgrades
// to running without the cache since the database stays authoritative.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	var cache *digestcache.Cache
	if cfg.Redis.Addr != "" {
		cache, err = digestcache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.CacheTTL())
		if err != nil {
			logger.Warn("digest cache unavailable, continuing without it", zap.Error(err))
			cache = nil
		}
	}

	return &App{
		Config:      cfg,
		DB:          pool,
		Cache:       cache,
		Importer:    importer.New(pool, d0010.NewParser(), cache, logger),
		FlowFiles:   repository.NewFlowFileRepository(pool),
		MeterPoints: repository.NewMeterPointRepository(pool),
		Meters:      repository.NewMeterRepository(pool),
		Readings:    repository.NewReadingRepository(pool),
		logger:      logger,
	}, nil
}

// Close releases resources.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn("failed to close digest cache", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
