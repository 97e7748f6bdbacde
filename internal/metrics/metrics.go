// Package metrics exposes Prometheus collectors for the vector store, the
// relevance evaluator and the HTTP API. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zkrag"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	chunksIngested prometheus.Counter
	batchFailures  prometheus.Counter
	indexSize      prometheus.Gauge
	rebuildSeconds prometheus.Gauge
	searches       prometheus.Counter
	searchSeconds  prometheus.Histogram
	orphansSkipped prometheus.Counter
	evaluations    *prometheus.CounterVec
	saturations    prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "chunks_ingested_total",
			Help: "Chunks inserted into the index and persisted.",
		}),
		batchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batch_failures_total",
			Help: "AddChunks batches that failed part way.",
		}),
		indexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "index_points",
			Help: "Points currently held by the ANN index.",
		}),
		rebuildSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "index_rebuild_seconds",
			Help: "Duration of the last index rebuild from the record log.",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "searches_total",
			Help: "ANN searches served.",
		}),
		searchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "search_duration_seconds",
			Help:    "ANN search latency including chunk resolution.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		orphansSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "orphans_skipped_total",
			Help: "Index hits with no chunk in the record store.",
		}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evaluations_total",
			Help: "Relevance evaluations by decision.",
		}, []string{"relevant"}),
		saturations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fixedpoint_saturations_total",
			Help: "Evaluations whose fixed-point arithmetic saturated.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chunksIngested, m.batchFailures, m.indexSize, m.rebuildSeconds,
		m.searches, m.searchSeconds, m.orphansSkipped,
		m.evaluations, m.saturations, m.httpRequests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ChunksIngested adds n successfully stored chunks.
func (m *Metrics) ChunksIngested(n int) {
	if m == nil {
		return
	}
	m.chunksIngested.Add(float64(n))
}

// BatchFailed records a failed AddChunks batch.
func (m *Metrics) BatchFailed() {
	if m == nil {
		return
	}
	m.batchFailures.Inc()
}

// SetIndexSize records the current index point count.
func (m *Metrics) SetIndexSize(n int) {
	if m == nil {
		return
	}
	m.indexSize.Set(float64(n))
}

// IndexRebuilt records how long the last rebuild took.
func (m *Metrics) IndexRebuilt(d time.Duration) {
	if m == nil {
		return
	}
	m.rebuildSeconds.Set(d.Seconds())
}

// SearchServed records one search and its latency.
func (m *Metrics) SearchServed(d time.Duration) {
	if m == nil {
		return
	}
	m.searches.Inc()
	m.searchSeconds.Observe(d.Seconds())
}

// OrphanSkipped records an index hit that had no chunk.
func (m *Metrics) OrphanSkipped() {
	if m == nil {
		return
	}
	m.orphansSkipped.Inc()
}

// Evaluated records one relevance decision.
func (m *Metrics) Evaluated(relevant, saturated bool) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(strconv.FormatBool(relevant)).Inc()
	if saturated {
		m.saturations.Inc()
	}
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
