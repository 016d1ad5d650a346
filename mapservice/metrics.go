package mapservice

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics tracks stage timings. A nil *metrics records nothing.
type metrics struct {
	stageSeconds *prometheus.HistogramVec
	failures     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tilemap_load_stage_seconds",
			Help:    "Duration of each map load stage.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tilemap_load_failures_total",
			Help: "Map loads aborted, by the stage that failed.",
		}, []string{"stage"}),
	}
	m.stageSeconds = register(reg, m.stageSeconds)
	m.failures = register(reg, m.failures)
	return m
}

// register adds c to reg, reusing an identical collector registered by an
// earlier service.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageSeconds.WithLabelValues(stage.String()).Observe(d.Seconds())
}

func (m *metrics) fail(stage Stage) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage.String()).Inc()
}
