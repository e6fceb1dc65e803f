package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var _ messaging.MetricsRecorder = (*Metrics)(nil)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("Expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// TestMetrics_BatchActivity tests that batch activity is recorded
func TestMetrics_BatchActivity(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBatchAppend(ctx, "events")
	m.RecordBatchAppend(ctx, "events")
	m.RecordBatchReset(ctx, "events", 2)
	m.RecordBatchReset(ctx, "events", 0)
	m.RecordBatchFlush(ctx, "events", 5, 12.5, true)
	m.RecordBatchFlush(ctx, "events", 5, 3, false)

	data := collect(t, reader)

	if got := sumOf(t, data["batch_messages_appended_total"]); got != 2 {
		t.Errorf("Expected 2 appends, got %d", got)
	}
	if got := sumOf(t, data["batch_resets_total"]); got != 2 {
		t.Errorf("Expected 2 resets, got %d", got)
	}
	if got := sumOf(t, data["batch_messages_discarded_total"]); got != 2 {
		t.Errorf("Expected 2 discarded messages, got %d", got)
	}
	if got := sumOf(t, data["batch_flushes_total"]); got != 2 {
		t.Errorf("Expected 2 flushes, got %d", got)
	}

	sizes, ok := data["batch_flush_size"].(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("Expected int64 histogram, got %T", data["batch_flush_size"])
	}
	var count uint64
	for _, dp := range sizes.DataPoints {
		count += dp.Count
	}
	if count != 1 {
		t.Errorf("Expected only the successful flush size recorded, got %d", count)
	}
}

// TestMetrics_HTTPAndAuth tests request and auth counters
func TestMetrics_HTTPAndAuth(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/batch/flush", 200, 4.2)
	m.RecordAuthFailure(ctx, "invalid_token")
	m.RecordPermissionCheck(ctx, "batch:flush", 0.1, true)

	data := collect(t, reader)
	if got := sumOf(t, data["http_server_requests_total"]); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}
	if got := sumOf(t, data["auth_failures_total"]); got != 1 {
		t.Errorf("Expected 1 auth failure, got %d", got)
	}
	if _, ok := data["permission_check_duration_ms"]; !ok {
		t.Error("Expected permission check histogram")
	}
}

// TestSampler tests sampler selection
func TestSampler(t *testing.T) {
	tests := map[string]string{
		"always_on":    "AlwaysOnSampler",
		"always_off":   "AlwaysOffSampler",
		"traceidratio": "TraceIDRatioBased{0.5}",
	}
	for name, want := range tests {
		got := Sampler(Config{TracesSampler: name, SampleRatio: 0.5}).Description()
		if got != want {
			t.Errorf("Sampler(%s): expected '%s', got '%s'", name, want, got)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("OTEL_METRICS_EXPORT_INTERVAL", "10s")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.MetricsInterval != 10*time.Second {
		t.Errorf("Expected 10s interval, got %s", cfg.MetricsInterval)
	}
	if cfg.SampleRatio != 0.25 {
		t.Errorf("Expected ratio 0.25, got %g", cfg.SampleRatio)
	}
}

func TestLoadConfig_InvalidRatio(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1.5")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for sampler ratio above 1")
	}
}
