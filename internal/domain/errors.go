package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// UnknownFieldKind says which part of a tracked field path failed to resolve.
type UnknownFieldKind string

const (
	UnknownDirectField     UnknownFieldKind = "field"
	UnknownChildTable      UnknownFieldKind = "child_table"
	UnknownChildTableField UnknownFieldKind = "child_field"
)

// UnknownFieldError reports a tracked field that does not exist in the schema.
type UnknownFieldError struct {
	Kind   UnknownFieldKind
	Field  string
	Schema string
}

func (e *UnknownFieldError) Error() string {
	switch e.Kind {
	case UnknownChildTable:
		return fmt.Sprintf("child table %s not found in %s", e.Field, e.Schema)
	case UnknownChildTableField:
		return fmt.Sprintf("field %s not found in child table %s", e.Field, e.Schema)
	default:
		return fmt.Sprintf("field %s not found in %s", e.Field, e.Schema)
	}
}

// InvalidTrackedFieldError reports a spec with both or neither addressing mode set.
type InvalidTrackedFieldError struct {
	Spec   TrackedFieldSpec
	Reason string
}

func (e *InvalidTrackedFieldError) Error() string {
	return fmt.Sprintf("invalid tracked field %q: %s", e.Spec.Path(), e.Reason)
}

// MissingTrackedFieldsError is returned when field level workflow is enabled
// without any tracked field.
type MissingTrackedFieldsError struct {
	Workflow string
}

func (e *MissingTrackedFieldsError) Error() string {
	return fmt.Sprintf("workflow %s: enable field level workflow requires at least one tracked field", e.Workflow)
}

// ImmutabilityViolation is returned on any attempt to modify or delete a
// change log entry.
type ImmutabilityViolation struct {
	EntryID   uuid.UUID
	Operation string
}

func (e *ImmutabilityViolation) Error() string {
	if e.Operation == "delete" {
		return fmt.Sprintf("workflow field change log entry %s cannot be deleted", e.EntryID)
	}
	return fmt.Sprintf("workflow field change log entry %s is immutable", e.EntryID)
}

// MetadataLookupFailure wraps a failed schema lookup during label/type
// enrichment. It is never fatal.
type MetadataLookupFailure struct {
	Schema string
	Field  string
	Err    error
}

func (e *MetadataLookupFailure) Error() string {
	return fmt.Sprintf("metadata lookup for %s.%s failed: %v", e.Schema, e.Field, e.Err)
}

func (e *MetadataLookupFailure) Unwrap() error {
	return e.Err
}

// DefinitionError rejects a workflow definition, naming the first tracked
// field that failed validation.
type DefinitionError struct {
	Workflow string
	Index    int
	Spec     TrackedFieldSpec
	Err      error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("workflow %s: tracked field #%d (%s): %v", e.Workflow, e.Index+1, e.Spec.Path(), e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}
