package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "refdata",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Change request lifecycle transitions broken down by action and result.",
	}, []string{"action", "result"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "refdata",
		Subsystem: "lifecycle",
		Name:      "write_conflicts_total",
		Help:      "Optimistic-lock and constraint conflicts rejected back to callers.",
	}, []string{"kind"})
)

func recordTransition(action, result string) {
	lifecycleTransitions.WithLabelValues(action, result).Inc()
}

func recordWriteConflict(kind string) {
	writeConflicts.WithLabelValues(kind).Inc()
}
