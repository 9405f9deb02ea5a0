package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WorkflowDefinition is the subset of a host workflow this module cares about:
// which document type it governs and which fields gate its transitions.
type WorkflowDefinition struct {
	ID                        uuid.UUID          `json:"id" yaml:"-"`
	Name                      string             `json:"name" yaml:"name"`
	DocumentType              string             `json:"document_type" yaml:"document_type"`
	IsActive                  bool               `json:"is_active" yaml:"is_active"`
	FieldLevelWorkflowEnabled bool               `json:"enable_field_level_workflow" yaml:"enable_field_level_workflow"`
	TrackedFields             []TrackedFieldSpec `json:"tracked_fields" yaml:"tracked_fields"`
	CreatedAt                 time.Time          `json:"created_at" yaml:"-"`
	UpdatedAt                 time.Time          `json:"updated_at" yaml:"-"`
}

// NewWorkflowDefinition creates an active definition for a document type.
func NewWorkflowDefinition(name, documentType string, tracked []TrackedFieldSpec) WorkflowDefinition {
	now := time.Now()
	return WorkflowDefinition{
		ID:                        uuid.New(),
		Name:                      name,
		DocumentType:              documentType,
		IsActive:                  true,
		FieldLevelWorkflowEnabled: true,
		TrackedFields:             copyTracked(tracked),
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// Gated reports whether transitions of this workflow depend on tracked changes.
func (w *WorkflowDefinition) Gated() bool {
	return w != nil && w.IsActive && w.FieldLevelWorkflowEnabled && len(w.TrackedFields) > 0
}

// WithTrackedFields returns a copy carrying the given specs.
func (w WorkflowDefinition) WithTrackedFields(tracked []TrackedFieldSpec) WorkflowDefinition {
	clone := w
	clone.TrackedFields = copyTracked(tracked)
	clone.UpdatedAt = time.Now()
	return clone
}

// GetTrackedFieldsAsJSONB returns the ordered tracked fields for storage.
func (w WorkflowDefinition) GetTrackedFieldsAsJSONB() (json.RawMessage, error) {
	if w.TrackedFields == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(w.TrackedFields)
}

// FromJSONBTrackedFields decodes stored tracked fields preserving order.
func FromJSONBTrackedFields(raw json.RawMessage) ([]TrackedFieldSpec, error) {
	var tracked []TrackedFieldSpec
	if len(raw) == 0 {
		return tracked, nil
	}
	err := json.Unmarshal(raw, &tracked)
	return tracked, err
}

func copyTracked(tracked []TrackedFieldSpec) []TrackedFieldSpec {
	if tracked == nil {
		return nil
	}
	out := make([]TrackedFieldSpec, len(tracked))
	copy(out, tracked)
	return out
}
