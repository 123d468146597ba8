package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Telemetry bundles the OpenTelemetry meter with the Prometheus scrape
// handler that exposes its instruments.
type Telemetry struct {
	Meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

func NewTelemetry(logger *zap.Logger) (*Telemetry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	logger.Info("telemetry initialized")

	return &Telemetry{
		Meter:    provider.Meter("estigate"),
		provider: provider,
		registry: registry,
	}, nil
}

// Handler returns the /metrics scrape endpoint.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
