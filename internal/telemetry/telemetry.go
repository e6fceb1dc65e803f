package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"gopkg.daemonl.com/envconf"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exportTimeout = 5 * time.Second

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	SampleRatio      float64
	MetricsInterval  time.Duration
}

type envConfig struct {
	ServiceName      string `env:"OTEL_SERVICE_NAME" default:"rabbitmq-binding"`
	ServiceNamespace string `env:"OTEL_SERVICE_NAMESPACE" default:"wailsalutem"`
	ServiceVersion   string `env:"OTEL_SERVICE_VERSION" default:"1.0.0"`
	Environment      string `env:"ENVIRONMENT" default:"production"`
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	TracesSampler    string `env:"OTEL_TRACES_SAMPLER" default:"parentbased_always_on"`
	SamplerArg       string `env:"OTEL_TRACES_SAMPLER_ARG" default:"0.1"`
	MetricsInterval  string `env:"OTEL_METRICS_EXPORT_INTERVAL" default:"30s"`
}

// LoadConfig reads the standard OTEL_* variables
func LoadConfig() (Config, error) {
	var env envConfig
	if err := envconf.Parse(&env); err != nil {
		return Config{}, fmt.Errorf("failed to parse telemetry config: %w", err)
	}

	ratio, err := strconv.ParseFloat(env.SamplerArg, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return Config{}, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be a ratio between 0 and 1, got %q", env.SamplerArg)
	}
	interval, err := time.ParseDuration(env.MetricsInterval)
	if err != nil || interval <= 0 {
		return Config{}, fmt.Errorf("OTEL_METRICS_EXPORT_INTERVAL must be a positive duration, got %q", env.MetricsInterval)
	}

	return Config{
		ServiceName:      env.ServiceName,
		ServiceNamespace: env.ServiceNamespace,
		ServiceVersion:   env.ServiceVersion,
		Environment:      env.Environment,
		OTLPEndpoint:     env.OTLPEndpoint,
		TracesSampler:    env.TracesSampler,
		SampleRatio:      ratio,
		MetricsInterval:  interval,
	}, nil
}

// Provider holds the OpenTelemetry providers. Either may be nil when its
// exporter could not be created.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

// InitProvider installs global tracer and meter providers and the W3C propagator.
// Exporter failures are logged and the service runs without them.
func InitProvider(ctx context.Context, cfg Config) (*Provider, error) {
	log.Printf("Initializing OpenTelemetry with endpoint: %s", cfg.OTLPEndpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()
	dial := grpc.WithTransportCredentials(insecure.NewCredentials())

	p := &Provider{}

	spanExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(dial),
		otlptracegrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		log.Printf("Warning: tracing disabled, OTLP trace exporter failed: %v", err)
	} else {
		p.TracerProvider = trace.NewTracerProvider(
			trace.WithResource(res),
			trace.WithSampler(Sampler(cfg)),
			trace.WithBatcher(spanExporter, trace.WithBatchTimeout(exportTimeout)),
		)
		otel.SetTracerProvider(p.TracerProvider)
		log.Printf("✓ Tracing enabled (sampler: %s)", cfg.TracesSampler)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(dial),
		otlpmetricgrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		log.Printf("Warning: metrics export disabled, OTLP metric exporter failed: %v", err)
	} else {
		p.MeterProvider = metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(cfg.MetricsInterval))),
		)
		otel.SetMeterProvider(p.MeterProvider)
		log.Printf("✓ Metrics export enabled (every %s)", cfg.MetricsInterval)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

// Sampler maps OTEL_TRACES_SAMPLER values onto SDK samplers
func Sampler(cfg Config) trace.Sampler {
	switch cfg.TracesSampler {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(cfg.SampleRatio)
	case "parentbased_traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SampleRatio))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

// Shutdown flushes pending spans and metrics and stops both providers
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
