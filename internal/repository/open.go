package repository

import (
	"context"
	"fmt"

	"agri-insights/internal/config"
	"agri-insights/pkg/database"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

// Open creates the prediction repository selected by cfg.Storage.Driver.
// The returned close function releases the database connection, if any.
func Open(cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (PredictionRepository, func() error, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn(context.Background(), "[REPO_INIT] Using in-memory prediction history; data is lost on exit", logging.Fields{})
		return NewMemoryRepository(), func() error { return nil }, nil

	case config.StorageDriverPostgres:
		db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			return nil, nil, err
		}
		return NewPredictionRepository(db, logger, metricsCollector), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}
