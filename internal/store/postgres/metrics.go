package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/estigate/estigate/internal/store/shared"
	"go.opentelemetry.io/otel/metric"
)

var (
	lookupCounter  metric.Int64Counter
	lookupErrors   metric.Int64Counter
	lookupDuration metric.Float64Histogram
)

// initStoreMetrics registers the store instruments on the given meter.
// Safe to call with a nil-result meter only once per process.
func initStoreMetrics(meter metric.Meter) {
	lookupCounter, _ = meter.Int64Counter("estimate_lookups_total",
		metric.WithDescription("Total number of estimate lookups"))
	lookupErrors, _ = meter.Int64Counter("estimate_lookup_errors_total",
		metric.WithDescription("Total number of failed estimate lookups (not-found excluded)"))
	lookupDuration, _ = meter.Float64Histogram("estimate_lookup_duration_seconds",
		metric.WithDescription("Estimate lookup duration in seconds"))
}

func recordLookup(ctx context.Context, d time.Duration, err error) {
	if lookupCounter == nil {
		return
	}
	lookupCounter.Add(ctx, 1)
	lookupDuration.Record(ctx, d.Seconds())
	if err != nil && !errors.Is(err, shared.ErrEstimateNotFound) {
		lookupErrors.Add(ctx, 1)
	}
}
