package couchparty

import "github.com/prometheus/client_golang/prometheus"

var (
	DesignWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "couchparty",
		Name:      "design_writes_total",
		Help:      "Design document writes by model type and result",
	}, []string{"type", "result"})

	DesignConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "couchparty",
		Name:      "design_conflicts_total",
		Help:      "Design document writes rejected with a revision conflict",
	}, []string{"type"})

	ViewQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "couchparty",
		Name:      "view_queries_total",
		Help:      "View queries sent to the store",
	}, []string{"type", "view"})

	ViewQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "couchparty",
		Name:      "view_query_duration_seconds",
		Buckets:   []float64{0, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"type", "view"})
)

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		DesignWrites,
		DesignConflicts,
		ViewQueries,
		ViewQueryDuration,
	}
}
