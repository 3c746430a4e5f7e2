package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cycle metrics
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dockmon_cycle_duration_seconds",
			Help:    "Time taken to run a complete collection cycle",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockmon_cycles_total",
			Help: "Total number of collection cycles",
		},
		[]string{"result"}, // ok or error
	)

	collectFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dockmon_collect_failures_total",
			Help: "Containers skipped because their collection failed",
		},
	)

	// Gauges describe the last completed cycle
	containersEnumerated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dockmon_containers_enumerated",
			Help: "Containers the runtime reported in the last cycle",
		},
	)

	containersWritten = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dockmon_containers_written",
			Help: "Snapshot rows persisted in the last cycle",
		},
	)

	containersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dockmon_containers",
			Help: "Monitored containers in the last cycle by status",
		},
		[]string{"status"}, // running, exited, ...
	)
)
