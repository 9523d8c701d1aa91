// Package metrics exposes Prometheus counters for report API traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple apps do not collide.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	cacheTotal      *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_api_requests_total",
			Help: "Requests sent to the reporting API by outcome.",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "report_api_request_duration_seconds",
			Help:    "Latency of reporting API requests.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_fetch_cache_total",
			Help: "Fetch cache lookups by result.",
		}, []string{"result"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_collection_runs_total",
			Help: "Collection runs by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.cacheTotal, m.runsTotal)
	return m
}

// ObserveRequest matches reportapi.Observer.
func (m *Metrics) ObserveRequest(outcome string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(elapsed.Seconds())
}

// ObserveCache matches the fetchcache observer.
func (m *Metrics) ObserveCache(result string) {
	m.cacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
