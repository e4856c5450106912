package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationsTotal counts committed top-level operations by kind
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factstore_mutations_total",
		Help: "Total fact mutations by operation",
	}, []string{"op"})

	// checksTotal counts condition evaluations by outcome
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factstore_checks_total",
		Help: "Total condition checks by result (true, false, error)",
	}, []string{"result"})

	listenerPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factstore_listener_panics_total",
		Help: "Total change listeners that panicked during delivery",
	})

	computeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factstore_compute_failures_total",
		Help: "Total computed fact evaluations that failed and kept their previous value",
	})

	batchRollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factstore_batch_rollbacks_total",
		Help: "Total batches rolled back after an error or panic",
	})
)
