package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	_ "github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/estigate/estigate/internal/db_model"
	"github.com/estigate/estigate/internal/store/shared"
)

const estimateWithProjectQuery = `
SELECT e.*, p.name AS project_name, p.client_name, p.contact_email
FROM estimates e
LEFT JOIN projects p ON p.id = e.project_id
WHERE e.id = $1
`

type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	cb     *gobreaker.CircuitBreaker
}

func NewPostgresStore(config shared.DbProviderConfig, logger *zap.Logger, meter metric.Meter) (*PostgresStore, error) {
	if meter != nil {
		initStoreMetrics(meter)
	}
	pgLogger := logger.Named("postgres")

	connStr, ok := config.ExtraDetails["conn_str"].(string)
	if !ok {
		return nil, fmt.Errorf("conn_str is required for Postgres store")
	}
	pgLogger.Info("initializing Postgres store")

	dbConn, err := sql.Open("postgres", connStr)
	if err != nil {
		pgLogger.Error("failed to open Postgres connection", zap.Error(err))
		return nil, fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	// The database may still be coming up when the service starts, so the
	// initial ping is retried with backoff.
	err = retry.Do(
		dbConn.Ping,
		retry.Attempts(5),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			pgLogger.Warn("retrying Postgres ping", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		pgLogger.Error("failed to ping Postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	// Automatically create tables if they do not exist
	if _, err := dbConn.Exec(db_model.Schema); err != nil {
		pgLogger.Error("failed to create initial tables", zap.Error(err))
		return nil, fmt.Errorf("failed to create initial tables: %w", err)
	}

	pgLogger.Info("Postgres store initialized successfully")
	return &PostgresStore{
		db:     dbConn,
		logger: pgLogger,
		cb:     newBreaker(),
	}, nil
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "PostgresDB",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		// A missing row is a valid outcome, not a database failure; it
		// must never trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, shared.ErrEstimateNotFound)
		},
	})
}

// GetEstimateWithProject runs the left-join lookup (with circuit breaker and
// retry). A missing row is shared.ErrEstimateNotFound and is never retried.
func (p *PostgresStore) GetEstimateWithProject(ctx context.Context, id int64) (db_model.EstimateWithProject, error) {
	start := time.Now()
	var result db_model.EstimateWithProject
	var opErr error
	retry.Do(
		func() error {
			res, err := p.cb.Execute(func() (interface{}, error) {
				return p.queryEstimateWithProject(ctx, id)
			})
			if err == nil {
				result = res.(db_model.EstimateWithProject)
			}
			opErr = err
			return err
		},
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, shared.ErrEstimateNotFound)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying GetEstimateWithProject", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	recordLookup(ctx, time.Since(start), opErr)
	return result, opErr
}

// queryEstimateWithProject scans the single joined row by column name so the
// estimate's own columns pass through without being enumerated here.
func (p *PostgresStore) queryEstimateWithProject(ctx context.Context, id int64) (db_model.EstimateWithProject, error) {
	rows, err := p.db.QueryContext(ctx, estimateWithProjectQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read estimate row: %w", err)
		}
		return nil, shared.ErrEstimateNotFound
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan estimate row: %w", err)
	}

	row := make(db_model.EstimateWithProject, len(cols))
	for i, col := range cols {
		switch v := vals[i].(type) {
		case []byte:
			// lib/pq returns text and numeric columns as raw bytes
			row[col] = string(v)
		default:
			row[col] = v
		}
	}
	return row, nil
}

// Close releases the underlying connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
