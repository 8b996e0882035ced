package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Prometheus records stage traffic as counters on its own registry.
type Prometheus struct {
	registry *prometheus.Registry
	blocks   *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewPrometheus registers the stage counters on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		blocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iop",
				Subsystem: "stage",
				Name:      "blocks_total",
				Help:      "Total number of data blocks passing a stage",
			},
			[]string{"stage"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "iop",
				Subsystem: "stage",
				Name:      "bytes_total",
				Help:      "Total number of bytes passing a stage",
			},
			[]string{"stage"},
		),
	}
}

// Observe implements Recorder.
func (p *Prometheus) Observe(stage string, n int) {
	p.blocks.WithLabelValues(stage).Inc()
	p.bytes.WithLabelValues(stage).Add(float64(n))
}

// Registry returns the registry holding the counters.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Push sends the current values to a Pushgateway under job, replacing the
// job's previous group.
func (p *Prometheus) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(p.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
