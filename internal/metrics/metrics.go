// Package metrics holds the Prometheus collectors for workflow gating and the
// change log. Collectors register on the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeUngated   = "ungated"

	TransitionAllowed    = "allowed"
	TransitionSuppressed = "suppressed"
)

var (
	evaluationMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgate_evaluations_total",
		Help: "Before-save evaluations by document type and outcome",
	}, []string{"document_type", "outcome"})

	transitionMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgate_transitions_total",
		Help: "Before-transition decisions by document type and result",
	}, []string{"document_type", "result"})

	auditEntriesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgate_change_log_entries_total",
		Help: "Change log entries written, by workflow",
	}, []string{"workflow"})

	auditErrorsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgate_change_log_errors_total",
		Help: "Change log inserts that failed, by workflow",
	}, []string{"workflow"})

	metadataFailureMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgate_metadata_lookup_failures_total",
		Help: "Schema metadata lookups that fell back to raw field names",
	}, []string{"schema"})
)

func ObserveEvaluation(documentType, outcome string) {
	evaluationMetric.WithLabelValues(documentType, outcome).Inc()
}

func ObserveTransition(documentType, result string) {
	transitionMetric.WithLabelValues(documentType, result).Inc()
}

func AddAuditEntries(workflow string, count int) {
	if count <= 0 {
		return
	}
	auditEntriesMetric.WithLabelValues(workflow).Add(float64(count))
}

func ObserveAuditError(workflow string) {
	auditErrorsMetric.WithLabelValues(workflow).Inc()
}

func ObserveMetadataFailure(schema string) {
	metadataFailureMetric.WithLabelValues(schema).Inc()
}
