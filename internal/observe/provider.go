package observe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/revittco/anylist-mcp"

// Supported exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Provider owns the meter provider and, for the Prometheus exporter, the
// scrape handler.
type Provider struct {
	Metrics *Metrics

	handler  http.Handler
	shutdown func(context.Context) error
}

// NewProvider builds a Provider for the named exporter. The stdout exporter
// writes to w, or stderr when w is nil; stdout is reserved for stdio
// transport frames.
func NewProvider(exporter string, w io.Writer) (*Provider, error) {
	var (
		meter metric.Meter
		p     = &Provider{shutdown: func(context.Context) error { return nil }}
	)

	switch exporter {
	case ExporterPrometheus:
		registry := prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
		meter = mp.Meter(meterName)
		p.shutdown = mp.Shutdown
		p.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	case ExporterStdout:
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		meter = mp.Meter(meterName)
		p.shutdown = mp.Shutdown

	case ExporterNone, "":
		meter = noop.NewMeterProvider().Meter(meterName)

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", exporter)
	}

	m, err := NewMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	p.Metrics = m
	return p, nil
}

// Handler returns the Prometheus scrape handler, or nil when the exporter
// does not serve one.
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
