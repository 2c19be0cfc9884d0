// Package observe wires OpenTelemetry metrics for tool calls and cache
// lookups.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records tool call and cache lookup measurements. A nil *Metrics
// records nothing.
type Metrics struct {
	calls    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	lookups  metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	calls, err := meter.Int64Counter(
		"anylist.tool.calls",
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"anylist.tool.errors",
		metric.WithDescription("Tool calls that ended in an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"anylist.tool.duration_ms",
		metric.WithDescription("Tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"anylist.cache.lookups",
		metric.WithDescription("Session cache lookups by kind and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{calls: calls, errors: errs, duration: duration, lookups: lookups}, nil
}

// RecordToolCall records one tools/call. failed covers both protocol
// errors and error results.
func (m *Metrics) RecordToolCall(ctx context.Context, tool string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(attribute.String("tool.name", tool))
	m.calls.Add(ctx, 1, opt)
	if failed {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(d.Microseconds())/1000, opt)
}

// RecordCacheLookup records a session cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, kind string, hit bool) {
	if m == nil {
		return
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("hit", hit),
	))
}
