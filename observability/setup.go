package observability

import (
	"context"
	stderrors "errors"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/iopipe/validation"
)

// Service identifies the running binary on exported telemetry.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// Config groups the exporters. Both are off by default.
type Config struct {
	Tracing TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults applies defaults to both exporters.
func (c *Config) ApplyDefaults() {
	c.Tracing.ApplyDefaults()
	c.Metrics.ApplyDefaults()
}

// Validate checks the enabled exporters.
func (c *Config) Validate() error {
	v := validation.New()
	if c.Tracing.Enabled {
		v.Required("tracing.endpoint", c.Tracing.Endpoint).
			Custom(c.Tracing.SampleRate >= 0 && c.Tracing.SampleRate <= 1,
				"tracing.sample_rate", "must be between 0 and 1")
	}
	if c.Metrics.Enabled {
		_, err := time.ParseDuration(c.Metrics.Interval)
		v.Required("metrics.endpoint", c.Metrics.Endpoint).
			Custom(err == nil, "metrics.interval", "must be a duration such as 15s")
	}
	return v.Err()
}

// Telemetry owns the providers installed by Setup.
type Telemetry struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Tracing reports whether a tracer provider was installed.
func (t *Telemetry) Tracing() bool { return t.tp != nil }

// Metering reports whether a meter provider was installed.
func (t *Telemetry) Metering() bool { return t.mp != nil }

// Setup installs the enabled providers. With nothing enabled the global
// no-op providers stay in place and Shutdown does nothing.
func Setup(ctx context.Context, svc Service, cfg Config) (*Telemetry, error) {
	t := &Telemetry{}
	if cfg.Tracing.Enabled {
		tp, err := InitTracer(ctx, svc, cfg.Tracing)
		if err != nil {
			return nil, err
		}
		t.tp = tp
	}
	if cfg.Metrics.Enabled {
		mp, err := InitMeter(ctx, svc, cfg.Metrics)
		if err != nil {
			_ = t.Shutdown(ctx)
			return nil, err
		}
		t.mp = mp
	}
	return t, nil
}

// Shutdown flushes and stops every installed provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return stderrors.Join(errs...)
}
