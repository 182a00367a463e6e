package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the counters exposed on /metrics
type Metrics struct {
	registry       *prometheus.Registry
	unfollows      *prometheus.CounterVec
	batchesStarted prometheus.Counter
	batchesRunning prometheus.Gauge
}

// NewMetrics registers the server's collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		unfollows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "igunfollow_unfollow_total",
			Help: "Unfollow requests by final result.",
		}, []string{"result"}),
		batchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "igunfollow_batches_started_total",
			Help: "Batches started through the HTTP server.",
		}),
		batchesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "igunfollow_batches_running",
			Help: "Batches currently running.",
		}),
	}
	m.registry.MustRegister(m.unfollows, m.batchesStarted, m.batchesRunning)
	return m
}

// ObserveUnfollow counts one finished username
func (m *Metrics) ObserveUnfollow(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.unfollows.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
