// Package observability holds the Prometheus instruments for the relay.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the daemon.
type Metrics struct {
	CallsTotal       *prometheus.CounterVec
	SynthesisSeconds prometheus.Histogram
	PublishSeconds   prometheus.Histogram
	SweptAssetsTotal prometheus.Counter
	ChownFailures    prometheus.Counter
}

// NewMetrics registers the instruments under the given namespace on the
// default registry. Tests pass a unique namespace per case to avoid
// duplicate registration panics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Call placements by outcome.",
		}, []string{"outcome"}),
		SynthesisSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_seconds",
			Help:      "Time spent synthesizing and resampling an announcement.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		PublishSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_seconds",
			Help:      "Time spent writing and publishing a call file.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		SweptAssetsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_assets_total",
			Help:      "Stale audio assets removed by the retention sweep.",
		}),
		ChownFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chown_failures_total",
			Help:      "Failed ownership fixes on published files; the engine may be unable to read them.",
		}),
	}
}

// ObserveSynthesis records the duration of one synthesis pipeline run.
func (m *Metrics) ObserveSynthesis(d time.Duration) {
	m.SynthesisSeconds.Observe(d.Seconds())
}

// ObservePublish records the duration of one call file publication.
func (m *Metrics) ObservePublish(d time.Duration) {
	m.PublishSeconds.Observe(d.Seconds())
}

// MetricsHandler exposes the default registry in Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
