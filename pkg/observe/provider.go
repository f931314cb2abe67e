package observe

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider is an initialised metrics pipeline.
type Provider struct {
	Metrics *Metrics
	// Handler serves the Prometheus scrape endpoint.
	Handler http.Handler

	mp *sdkmetric.MeterProvider
}

// InitProvider wires an OTel MeterProvider to a Prometheus exporter, registers
// it globally and creates the service instruments.
func InitProvider() (*Provider, error) {
	registry := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExp))
	otel.SetMeterProvider(mp)

	met, err := NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}
	return &Provider{
		Metrics: met,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		mp:      mp,
	}, nil
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}
