package observe

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordToolCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "anylist_lists", 5*time.Millisecond, false)
	m.RecordToolCall(ctx, "anylist_lists", 7*time.Millisecond, true)

	rm := collect(t, reader)
	if got := sumOf(t, rm, "anylist.tool.calls"); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
	if got := sumOf(t, rm, "anylist.tool.errors"); got != 1 {
		t.Fatalf("errors = %d, want 1", got)
	}

	hist := findMetric(rm, "anylist.tool.duration_ms")
	if hist == nil {
		t.Fatal("duration histogram not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(data.DataPoints) != 1 || data.DataPoints[0].Count != 2 {
		t.Fatalf("histogram = %+v", hist.Data)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "lists", false)
	m.RecordCacheLookup(ctx, "lists", true)
	m.RecordCacheLookup(ctx, "recipes", true)

	rm := collect(t, reader)
	lookups := findMetric(rm, "anylist.cache.lookups")
	if lookups == nil {
		t.Fatal("lookups not found")
	}
	sum := lookups.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 3 {
		t.Fatalf("data points = %d, want 3 distinct kind/hit pairs", len(sum.DataPoints))
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordToolCall(context.Background(), "x", time.Second, true)
	m.RecordCacheLookup(context.Background(), "lists", true)
}

func TestPrometheusProvider(t *testing.T) {
	p, err := NewProvider(ExporterPrometheus, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	defer p.Shutdown(context.Background())

	p.Metrics.RecordToolCall(context.Background(), "anylist_recipes", time.Millisecond, false)

	if p.Handler() == nil {
		t.Fatal("expected scrape handler")
	}
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if out := string(body); !strings.Contains(out, "anylist") || !strings.Contains(out, "calls") {
		t.Fatalf("scrape output missing tool calls:\n%s", body)
	}
}

func TestStdoutProviderFlushesOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewProvider(ExporterStdout, &buf)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if p.Handler() != nil {
		t.Fatal("stdout exporter should not serve a handler")
	}
	p.Metrics.RecordCacheLookup(context.Background(), "lists", true)
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "anylist.cache.lookups") {
		t.Fatalf("stdout output missing lookups: %s", buf.String())
	}
}

func TestProviderExporters(t *testing.T) {
	for _, name := range []string{ExporterNone, ""} {
		p, err := NewProvider(name, nil)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if p.Metrics == nil || p.Handler() != nil {
			t.Fatalf("%q: provider = %+v", name, p)
		}
		p.Metrics.RecordToolCall(context.Background(), "x", 0, false)
	}

	if _, err := NewProvider("carrier-pigeon", nil); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
