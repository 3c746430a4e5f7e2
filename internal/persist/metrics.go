package persist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writeRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dockmon_write_retries_total",
			Help: "Snapshot write attempts that failed and were retried",
		},
	)

	writesAbandonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dockmon_writes_abandoned_total",
			Help: "Snapshot batches discarded after the retry budget ran out",
		},
	)
)
