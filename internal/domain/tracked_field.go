package domain

import (
	"fmt"
	"strings"
)

// TrackedFieldSpec declares one field a workflow transition depends on. Either
// FieldName (direct mode) or ChildTableName+ChildFieldName (child mode) is set.
type TrackedFieldSpec struct {
	IsChildTableField bool   `json:"is_child_table_field" yaml:"is_child_table_field"`
	FieldName         string `json:"field_name,omitempty" yaml:"field_name,omitempty"`
	ChildTableName    string `json:"child_table_name,omitempty" yaml:"child_table_name,omitempty"`
	ChildFieldName    string `json:"child_field_name,omitempty" yaml:"child_field_name,omitempty"`

	// Resolved from the schema when the definition is validated.
	Label     string    `json:"field_label,omitempty" yaml:"field_label,omitempty"`
	FieldType FieldType `json:"field_type,omitempty" yaml:"field_type,omitempty"`
}

// DirectField builds a spec tracking a field on the document itself.
func DirectField(name string) TrackedFieldSpec {
	return TrackedFieldSpec{FieldName: name}
}

// ChildField builds a spec tracking a field inside each row of a collection.
func ChildField(collection, field string) TrackedFieldSpec {
	return TrackedFieldSpec{
		IsChildTableField: true,
		ChildTableName:    collection,
		ChildFieldName:    field,
	}
}

// Path returns "field" for direct specs and "collection.field" for child specs.
func (s TrackedFieldSpec) Path() string {
	if s.IsChildTableField {
		return s.ChildTableName + "." + s.ChildFieldName
	}
	return s.FieldName
}

// CheckAddressing verifies exactly one addressing mode is populated.
func (s TrackedFieldSpec) CheckAddressing() error {
	direct := strings.TrimSpace(s.FieldName) != ""
	child := strings.TrimSpace(s.ChildTableName) != "" || strings.TrimSpace(s.ChildFieldName) != ""

	if s.IsChildTableField {
		if direct {
			return &InvalidTrackedFieldError{Spec: s, Reason: "child table field must not set field_name"}
		}
		if strings.TrimSpace(s.ChildTableName) == "" || strings.TrimSpace(s.ChildFieldName) == "" {
			return &InvalidTrackedFieldError{Spec: s, Reason: "child table field requires child_table_name and child_field_name"}
		}
		return nil
	}

	if child {
		return &InvalidTrackedFieldError{Spec: s, Reason: "direct field must not set child table columns"}
	}
	if !direct {
		return &InvalidTrackedFieldError{Spec: s, Reason: "field_name is required"}
	}
	return nil
}

func (s TrackedFieldSpec) String() string {
	if s.IsChildTableField {
		return fmt.Sprintf("%s (child)", s.Path())
	}
	return s.Path()
}
