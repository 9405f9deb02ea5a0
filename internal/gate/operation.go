package gate

import (
	"context"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/loader"
)

// Operation is the request-scoped state shared by the before-save and
// before-transition stages of one document operation. It owns the schema and
// active definition caches, so a new Operation must be built per request.
type Operation struct {
	loaders     *loader.Loaders
	evaluations map[string]Evaluation
	summaries   map[string][]string
	notices     []Notice
}

// NewOperation wraps loaders built for the current request.
func NewOperation(loaders *loader.Loaders) *Operation {
	return &Operation{
		loaders:     loaders,
		evaluations: make(map[string]Evaluation),
		summaries:   make(map[string][]string),
	}
}

// GetSchema satisfies validator.SchemaSource through the request cache.
func (op *Operation) GetSchema(ctx context.Context, name string) (domain.DocumentSchema, error) {
	return op.loaders.GetSchema(ctx, name)
}

// ActiveDefinition returns the active definition for documentType, or nil.
func (op *Operation) ActiveDefinition(ctx context.Context, documentType string) (*domain.WorkflowDefinition, error) {
	return op.loaders.ActiveDefinition(ctx, documentType)
}

// Evaluation returns what before-save recorded for doc.
func (op *Operation) Evaluation(doc domain.Document) (Evaluation, bool) {
	eval, ok := op.evaluations[documentKey(doc)]
	return eval, ok
}

// Summary returns the change lines attached when doc's transition was logged.
func (op *Operation) Summary(doc domain.Document) []string {
	return op.summaries[documentKey(doc)]
}

// Notices returns every user notice raised during the operation.
func (op *Operation) Notices() []Notice {
	return append([]Notice(nil), op.notices...)
}

func (op *Operation) record(doc domain.Document, eval Evaluation) {
	op.evaluations[documentKey(doc)] = eval
}

func (op *Operation) notify(n Notice) {
	op.notices = append(op.notices, n)
}

func (op *Operation) attachSummary(doc domain.Document, lines []string) {
	op.summaries[documentKey(doc)] = lines
}

func documentKey(doc domain.Document) string {
	return doc.DocumentType + "\x00" + doc.Name
}
