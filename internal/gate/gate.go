// Package gate decides whether a workflow transition may run based on tracked
// field changes, and records the changes of every transition it lets through.
package gate

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rpattn/fieldgate/internal/audit"
	"github.com/rpattn/fieldgate/internal/changes"
	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/metrics"
	"github.com/rpattn/fieldgate/internal/schema/validator"
)

// SkipNotice is shown when a transition is suppressed.
const SkipNotice = "Workflow action skipped: no tracked field changes detected"

// State is the position of one document in the gating state machine.
type State string

const (
	StateUnchecked  State = "unchecked"
	StateEvaluated  State = "evaluated"
	StateAllowed    State = "allowed"
	StateLogged     State = "logged"
	StateSuppressed State = "suppressed"
)

// Notice is a user-visible message raised by the gate.
type Notice struct {
	Message   string `json:"message"`
	Indicator string `json:"indicator"`
	Alert     bool   `json:"alert"`
}

// Evaluation is the before-save decision carried into the transition stage.
type Evaluation struct {
	State      State                      `json:"state"`
	Gated      bool                       `json:"gated"`
	Changed    bool                       `json:"changed"`
	Workflow   string                     `json:"workflow,omitempty"`
	Definition *domain.WorkflowDefinition `json:"-"`
	Before     *domain.DocumentSnapshot   `json:"-"`
}

// TransitionResult reports what happened to one transition attempt.
type TransitionResult struct {
	State   State                   `json:"state"`
	Skip    bool                    `json:"skip"`
	Notice  *Notice                 `json:"notice,omitempty"`
	Changes []domain.FieldChange    `json:"changes"`
	Summary []string                `json:"summary"`
	Entries []domain.ChangeLogEntry `json:"entries"`
}

// Gate wires the change detector, diff builder and audit logger into the two
// host extension points.
type Gate struct {
	detector *changes.Detector
	audit    *audit.Logger
}

// New creates a Gate.
func New(detector *changes.Detector, logger *audit.Logger) *Gate {
	if detector == nil {
		detector = changes.NewDetector(changes.DefaultChildTableLimit)
	}
	return &Gate{detector: detector, audit: logger}
}

// OnBeforeSave evaluates doc against its active definition and records the
// result on op for the transition stage.
func (g *Gate) OnBeforeSave(ctx context.Context, op *Operation, doc domain.Document, before *domain.DocumentSnapshot) (Evaluation, error) {
	def, err := op.ActiveDefinition(ctx, doc.DocumentType)
	if err != nil {
		return Evaluation{State: StateUnchecked}, errors.Wrapf(err, "loading active workflow for %s", doc.DocumentType)
	}

	eval := Evaluation{State: StateEvaluated, Changed: true, Before: before}
	if !def.Gated() {
		metrics.ObserveEvaluation(doc.DocumentType, metrics.OutcomeUngated)
		op.record(doc, eval)
		return eval, nil
	}

	eval.Gated = true
	eval.Workflow = def.Name
	eval.Definition = def
	eval.Changed = g.detector.HasRelevantChange(before, doc, def.TrackedFields)

	outcome := metrics.OutcomeChanged
	if !eval.Changed {
		outcome = metrics.OutcomeUnchanged
	}
	metrics.ObserveEvaluation(doc.DocumentType, outcome)
	log.WithFields(log.Fields{
		"document_type": doc.DocumentType,
		"document":      doc.Name,
		"workflow":      def.Name,
		"changed":       eval.Changed,
	}).Debug("evaluated tracked fields")

	op.record(doc, eval)
	return eval, nil
}

// OnBeforeTransition suppresses the transition when before-save found no
// tracked change; otherwise it builds the diff and writes the change log.
func (g *Gate) OnBeforeTransition(ctx context.Context, op *Operation, doc domain.Document, action string) (TransitionResult, error) {
	eval, recorded := op.Evaluation(doc)
	if !recorded {
		def, err := op.ActiveDefinition(ctx, doc.DocumentType)
		if err != nil {
			return TransitionResult{State: StateUnchecked}, errors.Wrapf(err, "loading active workflow for %s", doc.DocumentType)
		}
		eval = Evaluation{State: StateUnchecked, Changed: true, Gated: def.Gated(), Definition: def}
	}

	if !eval.Gated {
		metrics.ObserveTransition(doc.DocumentType, metrics.TransitionAllowed)
		return TransitionResult{State: StateAllowed}, nil
	}

	logger := log.WithFields(log.Fields{
		"document_type": doc.DocumentType,
		"document":      doc.Name,
		"workflow":      eval.Definition.Name,
		"action":        action,
	})

	if !eval.Changed {
		notice := Notice{Message: SkipNotice, Indicator: "orange", Alert: true}
		op.notify(notice)
		metrics.ObserveTransition(doc.DocumentType, metrics.TransitionSuppressed)
		logger.Info("suppressed workflow transition")
		return TransitionResult{State: StateSuppressed, Skip: true, Notice: &notice}, nil
	}

	metrics.ObserveTransition(doc.DocumentType, metrics.TransitionAllowed)
	if eval.Before == nil {
		logger.Debug("no prior values to compare, nothing logged")
		return TransitionResult{State: StateAllowed}, nil
	}

	diff, failures := changes.BuildDiff(eval.Before, doc.Values, eval.Definition.TrackedFields, g.labels(ctx, op, doc.DocumentType))
	for _, failure := range failures {
		if failure.Schema == "" {
			failure.Schema = doc.DocumentType
		}
		metrics.ObserveMetadataFailure(failure.Schema)
		logger.WithError(failure).Warn("falling back to raw field name")
	}

	result := TransitionResult{State: StateAllowed, Changes: diff, Summary: changes.Summary(diff)}
	entries, err := g.audit.Log(ctx, doc, *eval.Definition, action, diff)
	result.Entries = entries
	if err != nil {
		return result, err
	}

	result.State = StateLogged
	op.attachSummary(doc, result.Summary)
	logger.WithField("changes", len(diff)).Info("logged workflow transition")
	return result, nil
}

// ValidateDefinition checks a definition before it is saved.
func (g *Gate) ValidateDefinition(ctx context.Context, op *Operation, def *domain.WorkflowDefinition) error {
	return validator.ValidateDefinition(ctx, op, def)
}

func (g *Gate) labels(ctx context.Context, op *Operation, documentType string) changes.LabelFunc {
	return func(field string) (string, error) {
		schema, err := op.GetSchema(ctx, documentType)
		if err != nil {
			return "", &domain.MetadataLookupFailure{Schema: documentType, Field: field, Err: err}
		}
		definition, ok := schema.GetField(field)
		if !ok {
			return "", &domain.MetadataLookupFailure{
				Schema: documentType,
				Field:  field,
				Err:    &domain.UnknownFieldError{Kind: domain.UnknownDirectField, Field: field, Schema: documentType},
			}
		}
		return definition.DisplayLabel(), nil
	}
}

// AugmentNotification appends the changed field list to a transition
// notification. message is returned as is when there are no changes.
func AugmentNotification(message string, diff []domain.FieldChange) string {
	if len(diff) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("<br><b>Changed Fields:</b><ul>")
	for _, change := range diff {
		fmt.Fprintf(&b, "<li><b>%s</b>: %s → %s</li>",
			html.EscapeString(change.Label),
			html.EscapeString(domain.DisplayValue(change.OldValue)),
			html.EscapeString(domain.DisplayValue(change.NewValue)),
		)
	}
	b.WriteString("</ul>")
	return b.String()
}
