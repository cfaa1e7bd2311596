package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// registry is a dedicated registry rather than the global default, so
// embedding GenerateTimetable in a larger process never collides with that
// process's own collector names.
var registry = prometheus.NewRegistry()

var (
	stageDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_engine_stage_duration_seconds",
		Help:    "Wall-clock duration of each orchestrator stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	clustersInfeasible = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "timetable_engine_infeasible_clusters_total",
		Help: "Clusters that exhausted the relaxation ladder and fell back to the greedy assignment.",
	})

	conflictsRemaining = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Name: "timetable_engine_conflicts_remaining",
		Help: "Residual hard-constraint conflicts after the most recent run's resolution stage.",
	})
)

// Registry exposes the engine's Prometheus collectors so a caller can wire
// its own scrape handler; registration/transport is the caller's concern.
func Registry() *prometheus.Registry { return registry }
