package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nss"

var (
	// FilterRequests counts filter queries by outcome: ok, not_found, error.
	FilterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filter_requests_total",
		Help:      "Filter queries by outcome.",
	}, []string{"outcome"})

	// ReferenceLookups counts codes table lookups by kind and result.
	ReferenceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reference_lookups_total",
		Help:      "Codes table lookups by kind and result.",
	}, []string{"kind", "result"})

	// Extractions counts natural-language filter extractions by result:
	// ok, parse_error, completion_error.
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_total",
		Help:      "Natural-language filter extractions by result.",
	}, []string{"result"})

	// LLMRequestDuration observes completion latency per provider.
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Language model completion latency.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"provider", "status"})
)
