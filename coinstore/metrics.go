package coinstore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusQueries         prometheus.Counter
	prometheusQueryBatches    prometheus.Counter
	prometheusProgramCompiles prometheus.Counter
	prometheusProgramReuses   prometheus.Counter
	prometheusInserted        prometheus.Counter
	prometheusSpent           prometheus.Counter
	prometheusSkipped         *prometheus.CounterVec

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_queries",
			Help: "Number of filters evaluated by query calls",
		},
	)
	prometheusQueryBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_query_batches",
			Help: "Number of select statements run by the query executor",
		},
	)
	prometheusProgramCompiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_program_compiles",
			Help: "Number of contract programs compiled",
		},
	)
	prometheusProgramReuses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_program_reuses",
			Help: "Number of contract program resolutions served without compiling",
		},
	)
	prometheusInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_outputs_inserted",
			Help: "Number of outputs inserted",
		},
	)
	prometheusSpent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_outputs_spent",
			Help: "Number of outputs marked as spent",
		},
	)
	prometheusSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinstore_outputs_skipped",
			Help: "Number of transaction outputs skipped during ingestion",
		},
		[]string{
			"reason", // missing_key, missing_witness, unblind
		},
	)
}
