package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeLogEntry is the immutable audit record of one tracked field change
// made while a workflow transition executed. Entries are write-once.
type ChangeLogEntry struct {
	ID            uuid.UUID `json:"id"`
	ReferenceType string    `json:"reference_doctype"`
	ReferenceName string    `json:"reference_name"`
	WorkflowName  string    `json:"workflow_name"`
	Action        string    `json:"action"`
	ChangedField  string    `json:"changed_field"`
	OldValue      *string   `json:"old_value"`
	NewValue      *string   `json:"new_value"`
	ChangedBy     string    `json:"changed_by"`
	ChangedOn     time.Time `json:"changed_on"`
}

// NewChangeLogEntry builds an entry for a change observed on doc. The actor
// and timestamp are fixed at creation.
func NewChangeLogEntry(doc Document, workflowName, action string, change FieldChange, actor string, at time.Time) (ChangeLogEntry, error) {
	oldValue, err := SerializeValue(change.OldValue)
	if err != nil {
		return ChangeLogEntry{}, err
	}
	newValue, err := SerializeValue(change.NewValue)
	if err != nil {
		return ChangeLogEntry{}, err
	}

	return ChangeLogEntry{
		ID:            uuid.New(),
		ReferenceType: doc.DocumentType,
		ReferenceName: doc.Name,
		WorkflowName:  workflowName,
		Action:        action,
		ChangedField:  change.Path,
		OldValue:      oldValue,
		NewValue:      newValue,
		ChangedBy:     actor,
		ChangedOn:     at,
	}, nil
}

// ChangeLogFilter narrows change log listings.
type ChangeLogFilter struct {
	ReferenceType string
	ReferenceName string
	WorkflowName  string
	Limit         int
	Offset        int
}
