// Package observability holds the Prometheus collectors of the timetable service.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orario_fetch_duration_seconds",
		Help:    "Duration of timetable document fetches.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	}, []string{"result"})

	indexCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orario_index_cache_total",
		Help: "Index cache lookups by result (hit or miss).",
	}, []string{"result"})

	indexBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orario_index_builds_total",
		Help: "Index rebuilds by result.",
	}, []string{"result"})

	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orario_queries_total",
		Help: "Timetable queries by outcome.",
	}, []string{"outcome"})
)

// ObserveFetch records one document fetch.
func ObserveFetch(err error, elapsed time.Duration) {
	fetchDuration.WithLabelValues(result(err)).Observe(elapsed.Seconds())
}

// CacheHit records an index cache hit.
func CacheHit() { indexCache.WithLabelValues("hit").Inc() }

// CacheMiss records an index cache miss.
func CacheMiss() { indexCache.WithLabelValues("miss").Inc() }

// IndexBuilt records one index rebuild attempt.
func IndexBuilt(err error) {
	indexBuilds.WithLabelValues(result(err)).Inc()
}

// QueryAnswered records the outcome of one query, e.g. "found", "ambiguous",
// "not_found" or an error kind.
func QueryAnswered(outcome string) {
	queries.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
