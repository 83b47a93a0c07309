package export

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type workerMetrics struct {
	jobs     *prometheus.CounterVec
	bytes    *prometheus.HistogramVec
	duration prometheus.Histogram
}

func newWorkerMetrics(reg prometheus.Registerer) *workerMetrics {
	m := &workerMetrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pluginkit_export_jobs_total",
			Help: "Export jobs by plugin and terminal status.",
		}, []string{"plugin", "status"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pluginkit_export_artifact_bytes",
			Help:    "Size of rendered export artifacts.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pluginkit_export_duration_seconds",
			Help:    "Time spent rendering and storing an export job.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		m.jobs = register(reg, m.jobs)
		m.bytes = register(reg, m.bytes)
		m.duration = register(reg, m.duration)
	}
	return m
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
