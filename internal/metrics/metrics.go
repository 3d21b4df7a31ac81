// Package metrics exposes Prometheus instruments for the map service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fetches counts collaborator API calls by source and outcome.
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daurin",
		Name:      "fetch_total",
		Help:      "Collaborator API fetches by source and outcome.",
	}, []string{"source", "outcome"})

	// FetchDuration observes collaborator API latency.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "daurin",
		Name:      "fetch_duration_seconds",
		Help:      "Collaborator API fetch latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	// StaleResponses counts loader responses dropped because a newer load started.
	StaleResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daurin",
		Name:      "stale_responses_total",
		Help:      "Loader responses discarded as stale.",
	}, []string{"kind"})

	// Routes counts route computations by outcome.
	Routes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daurin",
		Name:      "routes_total",
		Help:      "Route computations by engine and outcome.",
	}, []string{"engine", "outcome"})

	// Sessions tracks open map sessions.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "daurin",
		Name:      "map_sessions",
		Help:      "Open map sessions.",
	})
)

// ObserveFetch records one fetch.
func ObserveFetch(source string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Fetches.WithLabelValues(source, outcome).Inc()
	FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
