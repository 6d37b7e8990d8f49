// Package metrics records access decisions and validation outcomes through
// OpenTelemetry. Without an OTLP endpoint the global no-op provider is used.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const instrumentationName = "github.com/faawibowo/pakta/backend"

// Config configures the OTLP metric exporter.
type Config struct {
	ServiceName  string
	OTLPEndpoint string // e.g. "localhost:4317"; empty disables export
	Insecure     bool
	Interval     time.Duration
}

// Init installs a global meter provider exporting over OTLP/gRPC and returns
// its shutdown function. With no endpoint it is a no-op.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		slog.Info("metrics export disabled")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	slog.Info("metrics export enabled", "endpoint", cfg.OTLPEndpoint, "interval", interval.String())
	return mp.Shutdown, nil
}

// Recorder holds the instruments the request path writes to. A nil Recorder
// records nothing.
type Recorder struct {
	decisions metric.Int64Counter
	verdicts  metric.Int64Counter
	risk      metric.Int64Histogram
}

// NewRecorder creates the instruments on the given provider, or the global
// one when mp is nil.
func NewRecorder(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	decisions, err := meter.Int64Counter("pakta.access.decisions",
		metric.WithDescription("Access gate decisions by outcome and role"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision counter: %w", err)
	}

	verdicts, err := meter.Int64Counter("pakta.validation.verdicts",
		metric.WithDescription("Contract validations by overall verdict"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict counter: %w", err)
	}

	risk, err := meter.Int64Histogram("pakta.validation.risk_percentage",
		metric.WithDescription("Distribution of derived risk percentages"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(10, 30, 50, 70, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk histogram: %w", err)
	}

	return &Recorder{decisions: decisions, verdicts: verdicts, risk: risk}, nil
}

// AccessDecision counts one gate decision.
func (r *Recorder) AccessDecision(ctx context.Context, decision, role string) {
	if r == nil {
		return
	}
	r.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decision", decision),
		attribute.String("role", role),
	))
}

// Validation counts one validation outcome.
func (r *Recorder) Validation(ctx context.Context, verdict string, riskPercentage int) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("verdict", verdict))
	r.verdicts.Add(ctx, 1, attrs)
	r.risk.Record(ctx, int64(riskPercentage), attrs)
}
