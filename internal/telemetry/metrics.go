package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Batch metrics
	BatchAppendsTotal  metric.Int64Counter
	BatchResetsTotal   metric.Int64Counter
	BatchDiscarded     metric.Int64Counter
	BatchFlushesTotal  metric.Int64Counter
	BatchFlushDuration metric.Float64Histogram
	BatchFlushSize     metric.Int64Histogram

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics on the global meter provider
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter("github.com/WailSalutem-Health-Care/rabbitmq-binding"))
}

// NewMetrics creates the instruments on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.BatchAppendsTotal, err = meter.Int64Counter(
		"batch_messages_appended_total",
		metric.WithDescription("Messages appended to the publish batch"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, err
	}
	if m.BatchResetsTotal, err = meter.Int64Counter(
		"batch_resets_total",
		metric.WithDescription("Publish batch resets"),
		metric.WithUnit("{reset}"),
	); err != nil {
		return nil, err
	}
	if m.BatchDiscarded, err = meter.Int64Counter(
		"batch_messages_discarded_total",
		metric.WithDescription("Pending messages dropped by a reset"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, err
	}
	if m.BatchFlushesTotal, err = meter.Int64Counter(
		"batch_flushes_total",
		metric.WithDescription("Publish batch flushes"),
		metric.WithUnit("{flush}"),
	); err != nil {
		return nil, err
	}
	if m.BatchFlushDuration, err = meter.Float64Histogram(
		"batch_flush_duration_milliseconds",
		metric.WithDescription("Time to publish a batch"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.BatchFlushSize, err = meter.Int64Histogram(
		"batch_flush_size",
		metric.WithDescription("Messages per flushed batch"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, err
	}

	if m.AuthFailuresTotal, err = meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}
	if m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	log.Println("✓ Custom metrics initialized")
	return &m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

// RecordBatchAppend counts one appended message
func (m *Metrics) RecordBatchAppend(ctx context.Context, exchange string) {
	m.BatchAppendsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("exchange", exchange)))
}

// RecordBatchReset counts a reset and the messages it dropped
func (m *Metrics) RecordBatchReset(ctx context.Context, exchange string, discarded int) {
	attrs := metric.WithAttributes(attribute.String("exchange", exchange))
	m.BatchResetsTotal.Add(ctx, 1, attrs)
	if discarded > 0 {
		m.BatchDiscarded.Add(ctx, int64(discarded), attrs)
	}
}

// RecordBatchFlush records a flush attempt
func (m *Metrics) RecordBatchFlush(ctx context.Context, exchange string, size int, durationMs float64, success bool) {
	attrs := metric.WithAttributes(
		attribute.String("exchange", exchange),
		attribute.Bool("success", success),
	)
	m.BatchFlushesTotal.Add(ctx, 1, attrs)
	m.BatchFlushDuration.Record(ctx, durationMs, attrs)
	if success {
		m.BatchFlushSize.Record(ctx, int64(size), attrs)
	}
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
