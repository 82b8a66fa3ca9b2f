// Package metrics defines Prometheus metrics for the harmonizer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jenezis/harmonizer/internal/taxonomy"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harmonizer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "harmonizer_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route class",
		},
		[]string{"class"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "harmonizer_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	CacheSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harmonizer_taxonomy_cache_size",
			Help: "Entries in the installed taxonomy snapshot",
		},
		[]string{"kind"},
	)

	LoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_taxonomy_loads_total",
			Help: "Taxonomy loads by result",
		},
		[]string{"result"},
	)

	LoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harmonizer_taxonomy_load_duration_seconds",
			Help:    "Taxonomy load duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	HarmonizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_harmonized_total",
			Help: "Harmonized terms by outcome",
		},
		[]string{"status"},
	)

	SuggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_suggestions_total",
			Help: "Suggest calls by method",
		},
		[]string{"method"},
	)

	RerankFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harmonizer_rerank_failures_total",
			Help: "Re-rank calls that fell back to string similarity",
		},
	)

	OntologyDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harmonizer_ontology_dropped_total",
			Help: "Records dropped by ontology validation",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, RequestsInFlight, RateLimited,
		ErrorsTotal, WSConnections,
		CacheSize, LoadsTotal, LoadDuration,
		HarmonizedTotal, SuggestionsTotal, RerankFailures,
		OntologyDropped,
	)
}

// Sink forwards core events to the package collectors. It implements
// taxonomy.Recorder, harmonizer.Recorder and ontology.Recorder.
type Sink struct{}

// TaxonomyLoaded records a finished load attempt.
func (Sink) TaxonomyLoaded(stats taxonomy.Stats, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	LoadsTotal.WithLabelValues(result).Inc()
	LoadDuration.Observe(stats.Duration.Seconds())

	CacheSize.WithLabelValues("aliases").Set(float64(stats.Aliases))
	CacheSize.WithLabelValues("canonicals").Set(float64(stats.Canonicals))
	CacheSize.WithLabelValues("edges").Set(float64(stats.Edges))
}

// Harmonized records one harmonized term.
func (Sink) Harmonized(known bool) {
	status := "unknown"
	if known {
		status = "known"
	}
	HarmonizedTotal.WithLabelValues(status).Inc()
}

// Suggested records one suggest call by the method that produced it.
func (Sink) Suggested(method string) {
	SuggestionsTotal.WithLabelValues(method).Inc()
}

// RerankFailed records a re-rank fallback.
func (Sink) RerankFailed() {
	RerankFailures.Inc()
}

// OntologyFiltered records records dropped by one validation call.
func (Sink) OntologyFiltered(droppedEntities, droppedRelations int) {
	OntologyDropped.WithLabelValues("entity").Add(float64(droppedEntities))
	OntologyDropped.WithLabelValues("relation").Add(float64(droppedRelations))
}
