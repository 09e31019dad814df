// Package metrics holds the reconciliation prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Group change actions.
const (
	ActionAdd     = "add"
	ActionRemove  = "remove"
	ActionCreate  = "create"
	ActionPromote = "promote"
	ActionRepair  = "repair"
	ActionSkip    = "skip"
)

// Reconciliation phases.
const (
	PhasePre  = "pre"
	PhasePost = "post"
)

var (
	// GroupChanges counts group changes made or skipped during reconciliation.
	GroupChanges = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "keycloak_ext_reconcile_group_changes_total",
			Help: "Group membership and group record changes made by reconciliation.",
		},
		[]string{"action"},
	)

	// Reconciliations counts reconciliation phases by outcome.
	Reconciliations = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "keycloak_ext_reconcile_total",
			Help: "Reconciliation phases run, by phase and outcome.",
		},
		[]string{"phase", "outcome"},
	)
)

// GroupChange increments the change counter for action.
func GroupChange(action string) {
	GroupChanges.WithLabelValues(action).Inc()
}

// Reconciled increments the phase counter.
func Reconciled(phase, outcome string) {
	Reconciliations.WithLabelValues(phase, outcome).Inc()
}
