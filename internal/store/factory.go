package store

import (
	"encoding/json"
	"fmt"

	"github.com/estigate/estigate/internal/store/postgres"
	"github.com/estigate/estigate/internal/store/shared"
	"github.com/estigate/estigate/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// StoreFactory defines the interface for creating estimate stores
type StoreFactory interface {
	CreateStore(configJSON string) (EstimateStore, error)
}

// EstimateStoreFactory implements StoreFactory for the supported backends
type EstimateStoreFactory struct {
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

func NewEstimateStoreFactory(logger *zap.Logger, tel *telemetry.Telemetry) *EstimateStoreFactory {
	return &EstimateStoreFactory{
		logger:    logger.Named("factory"),
		telemetry: tel,
	}
}

func (f *EstimateStoreFactory) CreateStore(configJSON string) (EstimateStore, error) {
	// Empty config defaults to the in-memory store so the service runs
	// without a database in local development.
	if configJSON == "" {
		f.logger.Info("no store configuration, using in-memory store")
		return NewInMemoryStore(), nil
	}

	var config shared.DbProviderConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to parse store configuration JSON: %w", err)
	}

	f.logger.Info("creating estimate store",
		zap.String("db_type", config.DbType.String()))

	if !config.DbType.IsValid() {
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}

	var telemetryMeter metric.Meter
	if f.telemetry != nil {
		telemetryMeter = f.telemetry.Meter
	}

	switch config.DbType {
	case shared.DbTypePostgres:
		return postgres.NewPostgresStore(config, f.logger, telemetryMeter)
	case shared.DbTypeMemory:
		f.logger.Info("using in-memory store")
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}
}
