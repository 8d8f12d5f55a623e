// Package metrics exposes Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommitsTotal counts committed entity mutations by type and operation.
	CommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statline_commits_total",
		Help: "Committed entity mutations by entity type and operation.",
	}, []string{"entity_type", "operation"})

	// VersionConflictsTotal counts optimistic-lock losses.
	VersionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statline_version_conflicts_total",
		Help: "Updates rejected because the expected version did not match.",
	})

	// PropagationsTotal counts synchronization rule firings by rule name.
	PropagationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statline_propagations_total",
		Help: "Synchronization rule firings by rule.",
	}, []string{"rule"})

	// PropagationFailuresTotal counts aborted propagation chains.
	PropagationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "statline_propagation_failures_total",
		Help: "Propagation chains aborted by depth or cycle detection.",
	})

	// AlertsEmittedTotal counts alerts produced per evaluation by type.
	AlertsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statline_alerts_emitted_total",
		Help: "Alerts emitted by anomaly evaluation, by alert type.",
	}, []string{"alert_type"})

	// StalenessWarnings reports the size of the last freshness scan result.
	StalenessWarnings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statline_staleness_warnings",
		Help: "Staleness warnings found by the most recent freshness scan.",
	})
)
