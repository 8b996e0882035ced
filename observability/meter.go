package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/iopipe/logger"
)

// MeterConfig configures OTLP metric export.
type MeterConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the export period ("15s"). Short-lived runs still export
	// once on shutdown.
	Interval string `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills endpoint and interval.
func (c *MeterConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval == "" {
		c.Interval = "15s"
	}
}

func (c *MeterConfig) interval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0
	}
	return d
}

// InitMeter installs a periodic OTLP meter provider as the global provider.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, svc Service, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if d := config.interval(); d > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(d))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", svc.Name,
		"endpoint", config.Endpoint,
		"interval", config.Interval,
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds run-level instruments: one sample per executed command.
type Metrics struct {
	runTotal    metric.Int64Counter
	runDuration metric.Float64Histogram
	runBytes    metric.Int64Counter
	errorTotal  metric.Int64Counter
}

// NewMetrics creates the run instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("iop.run.total",
		metric.WithDescription("Total number of pipeline runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iop.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("iop.run.duration",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iop.run.duration histogram: %w", err)
	}

	runBytes, err := meter.Int64Counter("iop.run.bytes",
		metric.WithDescription("Bytes delivered to the final sink"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iop.run.bytes counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("iop.error.total",
		metric.WithDescription("Failed runs by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating iop.error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:    runTotal,
		runDuration: runDuration,
		runBytes:    runBytes,
		errorTotal:  errorTotal,
	}, nil
}

// RecordRun records one finished run.
func (m *Metrics) RecordRun(ctx context.Context, operation, status string, duration time.Duration, bytes int64) {
	op := attribute.String("operation", operation)
	m.runTotal.Add(ctx, 1, metric.WithAttributes(op, attribute.String("status", status)))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(op))
	if bytes > 0 {
		m.runBytes.Add(ctx, bytes, metric.WithAttributes(op))
	}
}

// RecordError records a failed run by error code.
func (m *Metrics) RecordError(ctx context.Context, operation, code string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
}
