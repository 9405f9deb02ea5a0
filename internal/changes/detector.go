package changes

import (
	"github.com/rpattn/fieldgate/internal/domain"
)

// DefaultChildTableLimit is the collection size above which rows are not
// compared one by one.
const DefaultChildTableLimit = 200

// Detector decides whether a save touched any tracked field.
type Detector struct {
	ChildTableLimit int
}

// NewDetector creates a detector; non-positive limits use DefaultChildTableLimit.
func NewDetector(childTableLimit int) *Detector {
	if childTableLimit <= 0 {
		childTableLimit = DefaultChildTableLimit
	}
	return &Detector{ChildTableLimit: childTableLimit}
}

// HasRelevantChange reports whether any spec differs between before and the
// document's current values. New documents (before == nil) and documents
// being cancelled or amended always count as changed.
func (d *Detector) HasRelevantChange(before *domain.DocumentSnapshot, doc domain.Document, specs []domain.TrackedFieldSpec) bool {
	if before == nil || doc.State.Bypass() {
		return true
	}

	for _, spec := range specs {
		if d.SpecChanged(*before, doc.Values, spec) {
			return true
		}
	}
	return false
}

// SpecChanged compares one tracked field between two snapshots.
func (d *Detector) SpecChanged(before, current domain.DocumentSnapshot, spec domain.TrackedFieldSpec) bool {
	if !spec.IsChildTableField {
		return !valuesEqual(before.Get(spec.FieldName), current.Get(spec.FieldName))
	}
	return d.childTableChanged(before.Rows(spec.ChildTableName), current.Rows(spec.ChildTableName), spec.ChildFieldName)
}

// childTableChanged compares rows by position. Oversized collections are
// reported as changed without looking at the rows.
func (d *Detector) childTableChanged(prev, curr []domain.Row, field string) bool {
	limit := d.limit()
	if len(curr) > limit || len(prev) > limit {
		return true
	}
	if len(curr) != len(prev) {
		return true
	}
	for idx, row := range curr {
		if !valuesEqual(prev[idx].Get(field), row.Get(field)) {
			return true
		}
	}
	return false
}

func (d *Detector) limit() int {
	if d == nil || d.ChildTableLimit <= 0 {
		return DefaultChildTableLimit
	}
	return d.ChildTableLimit
}
