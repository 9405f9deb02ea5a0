package changes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rpattn/fieldgate/internal/domain"
)

var orderSpecs = []domain.TrackedFieldSpec{
	domain.DirectField("status"),
	domain.ChildField("items", "qty"),
}

func snapshot(fields map[string]any) *domain.DocumentSnapshot {
	s := domain.NewDocumentSnapshot(fields)
	return &s
}

func order(fields map[string]any) domain.Document {
	return domain.Document{DocumentType: "Sales Order", Name: "SO-0001", Values: domain.NewDocumentSnapshot(fields)}
}

func itemRows(qty ...any) []any {
	rows := make([]any, len(qty))
	for i, q := range qty {
		rows[i] = map[string]any{"qty": q, "idx": float64(i + 1)}
	}
	return rows
}

func TestHasRelevantChange_NewDocumentAlwaysChanged(t *testing.T) {
	d := NewDetector(0)
	doc := order(map[string]any{"status": "Draft"})

	assert.True(t, d.HasRelevantChange(nil, doc, orderSpecs))
	assert.True(t, d.HasRelevantChange(nil, doc, nil))
}

func TestHasRelevantChange_BypassStates(t *testing.T) {
	d := NewDetector(0)
	fields := map[string]any{"status": "Draft", "items": itemRows(1.0)}
	before := snapshot(fields)

	for _, state := range []domain.DocumentState{domain.DocumentStateCancelling, domain.DocumentStateAmending} {
		doc := order(fields)
		doc.State = state
		assert.True(t, d.HasRelevantChange(before, doc, orderSpecs), "state %s must bypass", state)
	}
}

func TestHasRelevantChange_DirectField(t *testing.T) {
	d := NewDetector(0)
	before := snapshot(map[string]any{"status": "Draft", "items": itemRows(1.0)})

	assert.True(t, d.HasRelevantChange(before, order(map[string]any{"status": "Submitted", "items": itemRows(1.0)}), orderSpecs))
	assert.False(t, d.HasRelevantChange(before, order(map[string]any{"status": "Draft", "items": itemRows(1.0)}), orderSpecs))
}

func TestHasRelevantChange_MissingEqualsNull(t *testing.T) {
	d := NewDetector(0)
	specs := []domain.TrackedFieldSpec{domain.DirectField("remarks")}

	before := snapshot(map[string]any{"remarks": nil})
	assert.False(t, d.HasRelevantChange(before, order(map[string]any{}), specs))

	assert.True(t, d.HasRelevantChange(before, order(map[string]any{"remarks": "x"}), specs))
}

func TestHasRelevantChange_NumericTypesCompareByValue(t *testing.T) {
	d := NewDetector(0)
	specs := []domain.TrackedFieldSpec{domain.DirectField("amount")}

	before := snapshot(map[string]any{"amount": float64(10)})
	assert.False(t, d.HasRelevantChange(before, order(map[string]any{"amount": 10}), specs))
}

func TestHasRelevantChange_LargeIntegersCompareExactly(t *testing.T) {
	d := NewDetector(0)
	specs := []domain.TrackedFieldSpec{domain.DirectField("ref")}

	before := snapshot(map[string]any{"ref": int64(9007199254740992)})
	current := order(map[string]any{"ref": int64(9007199254740993)})
	assert.True(t, d.HasRelevantChange(before, current, specs))

	diff, failures := BuildDiff(before, current.Values, specs, nil)
	assert.Empty(t, failures)
	assert.Len(t, diff, 1)

	decoded := snapshot(map[string]any{"ref": json.Number("9007199254740993")})
	assert.False(t, d.HasRelevantChange(decoded, current, specs))
}

func TestHasRelevantChange_UntrackedFieldIgnored(t *testing.T) {
	d := NewDetector(0)
	before := snapshot(map[string]any{"status": "Draft", "notes": "a", "items": itemRows(1.0)})
	current := order(map[string]any{"status": "Draft", "notes": "b", "items": itemRows(1.0)})

	assert.False(t, d.HasRelevantChange(before, current, orderSpecs))
}

func TestHasRelevantChange_ChildRowValue(t *testing.T) {
	d := NewDetector(0)
	before := snapshot(map[string]any{"status": "Draft", "items": itemRows(1.0, 2.0)})
	current := order(map[string]any{"status": "Draft", "items": itemRows(1.0, 5.0)})

	assert.True(t, d.HasRelevantChange(before, current, orderSpecs))
}

func TestHasRelevantChange_ChildLengthChange(t *testing.T) {
	d := NewDetector(0)
	before := snapshot(map[string]any{"status": "Draft", "items": itemRows(1.0, 2.0)})
	current := order(map[string]any{"status": "Draft", "items": itemRows(1.0, 2.0, 2.0)})

	assert.True(t, d.HasRelevantChange(before, current, orderSpecs))
}

func TestHasRelevantChange_ChildReorderCountsAsChange(t *testing.T) {
	d := NewDetector(0)
	before := snapshot(map[string]any{"items": itemRows(1.0, 2.0)})
	current := order(map[string]any{"items": itemRows(2.0, 1.0)})

	assert.True(t, d.HasRelevantChange(before, current, orderSpecs[1:]))
}

func TestHasRelevantChange_OversizedCollection(t *testing.T) {
	d := NewDetector(3)
	rows := itemRows(1.0, 1.0, 1.0, 1.0)

	before := snapshot(map[string]any{"status": "Draft", "items": rows})
	current := order(map[string]any{"status": "Draft", "items": rows})

	assert.True(t, d.HasRelevantChange(before, current, orderSpecs), "collections above the limit are always changed")

	small := itemRows(1.0, 1.0, 1.0)
	before = snapshot(map[string]any{"status": "Draft", "items": small})
	current = order(map[string]any{"status": "Draft", "items": small})
	assert.False(t, d.HasRelevantChange(before, current, orderSpecs), "collections at the limit are compared")
}

func TestHasRelevantChange_DefaultThresholdLengthMismatch(t *testing.T) {
	d := NewDetector(0)
	prev := make([]any, 200)
	curr := make([]any, 201)
	for i := range prev {
		prev[i] = map[string]any{"qty": 1.0}
	}
	for i := range curr {
		curr[i] = map[string]any{"qty": 1.0}
	}

	before := snapshot(map[string]any{"status": "Draft", "items": prev})
	current := order(map[string]any{"status": "Draft", "items": curr})

	assert.True(t, d.HasRelevantChange(before, current, orderSpecs))
}

func TestHasRelevantChange_NoSpecsNoChange(t *testing.T) {
	d := NewDetector(0)
	before := snapshot(map[string]any{"status": "Draft"})

	assert.False(t, d.HasRelevantChange(before, order(map[string]any{"status": "Submitted"}), nil))
}
