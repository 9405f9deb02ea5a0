package changes

import (
	"errors"

	"github.com/rpattn/fieldgate/internal/domain"
)

// LabelFunc resolves the display label of a direct field from schema metadata.
type LabelFunc func(field string) (string, error)

// BuildDiff lists every tracked difference between before and current, in
// spec declaration order and then row order. Label lookups that fail fall back
// to the raw field name and are returned alongside the diff.
func BuildDiff(before *domain.DocumentSnapshot, current domain.DocumentSnapshot, specs []domain.TrackedFieldSpec, labels LabelFunc) ([]domain.FieldChange, []*domain.MetadataLookupFailure) {
	if before == nil {
		return nil, nil
	}

	var (
		diff     []domain.FieldChange
		failures []*domain.MetadataLookupFailure
	)

	for _, spec := range specs {
		if !spec.IsChildTableField {
			oldValue := before.Get(spec.FieldName)
			newValue := current.Get(spec.FieldName)
			if valuesEqual(oldValue, newValue) {
				continue
			}

			label, failure := directLabel(spec.FieldName, labels)
			if failure != nil {
				failures = append(failures, failure)
			}
			diff = append(diff, domain.FieldChange{
				Path:     spec.FieldName,
				Label:    label,
				OldValue: oldValue,
				NewValue: newValue,
			})
			continue
		}

		diff = append(diff, childChanges(before.Rows(spec.ChildTableName), current.Rows(spec.ChildTableName), spec)...)
	}

	return diff, failures
}

// Summary renders one "label: old → new" line per change.
func Summary(diff []domain.FieldChange) []string {
	lines := make([]string, 0, len(diff))
	for _, change := range diff {
		lines = append(lines, change.SummaryLine())
	}
	return lines
}

func childChanges(prev, curr []domain.Row, spec domain.TrackedFieldSpec) []domain.FieldChange {
	path := spec.Path()
	maxLen := len(prev)
	if len(curr) > maxLen {
		maxLen = len(curr)
	}

	var out []domain.FieldChange
	for idx := 0; idx < maxLen; idx++ {
		var oldValue, newValue any
		if idx < len(prev) {
			oldValue = prev[idx].Get(spec.ChildFieldName)
		}
		if idx < len(curr) {
			newValue = curr[idx].Get(spec.ChildFieldName)
		}
		if valuesEqual(oldValue, newValue) {
			continue
		}

		row := idx
		out = append(out, domain.FieldChange{
			Path:     path,
			Label:    path,
			Row:      &row,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}
	return out
}

func directLabel(field string, labels LabelFunc) (string, *domain.MetadataLookupFailure) {
	if labels == nil {
		return field, nil
	}

	label, err := labels(field)
	if err != nil {
		var failure *domain.MetadataLookupFailure
		if !errors.As(err, &failure) {
			failure = &domain.MetadataLookupFailure{Field: field, Err: err}
		}
		return field, failure
	}
	if label == "" {
		return field, nil
	}
	return label, nil
}
