package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldType represents the type of a field in a document schema
type FieldType string

const (
	FieldTypeData     FieldType = "DATA"
	FieldTypeText     FieldType = "TEXT"
	FieldTypeInt      FieldType = "INT"
	FieldTypeFloat    FieldType = "FLOAT"
	FieldTypeCurrency FieldType = "CURRENCY"
	FieldTypeCheck    FieldType = "CHECK"
	FieldTypeDate     FieldType = "DATE"
	FieldTypeSelect   FieldType = "SELECT"
	FieldTypeLink     FieldType = "LINK"
	FieldTypeJSON     FieldType = "JSON"
	// FieldTypeTable marks a repeating child collection. Options carries the
	// name of the schema describing each row.
	FieldTypeTable FieldType = "TABLE"
)

// FieldDefinition represents a field definition in a document schema
type FieldDefinition struct {
	Name    string    `json:"name" yaml:"name"`
	Label   string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type    FieldType `json:"type" yaml:"type"`
	Options string    `json:"options,omitempty" yaml:"options,omitempty"`
}

// DisplayLabel returns the label, falling back to the field name when blank.
func (f FieldDefinition) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

// IsTable reports whether the field holds a child collection.
func (f FieldDefinition) IsTable() bool {
	return FieldType(strings.ToUpper(string(f.Type))) == FieldTypeTable
}

// DocumentSchema describes the fields of one document type. Child collection
// rows are described by their own DocumentSchema.
type DocumentSchema struct {
	ID          uuid.UUID         `json:"id" yaml:"-"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	IsChild     bool              `json:"is_child" yaml:"is_child,omitempty"`
	Fields      []FieldDefinition `json:"fields" yaml:"fields"`
	CreatedAt   time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"-"`
}

// NewDocumentSchema creates a new document schema with immutable pattern
func NewDocumentSchema(name, description string, fields []FieldDefinition) DocumentSchema {
	now := time.Now()
	return DocumentSchema{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Fields:      copyFields(fields),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasField reports whether the schema declares the named field.
func (s DocumentSchema) HasField(name string) bool {
	_, ok := s.GetField(name)
	return ok
}

// GetField looks up a field definition by name.
func (s DocumentSchema) GetField(name string) (FieldDefinition, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// ChildSchemaName returns the schema name referenced by a TABLE field.
func (s DocumentSchema) ChildSchemaName(collection string) (string, bool) {
	field, ok := s.GetField(collection)
	if !ok || !field.IsTable() {
		return "", false
	}
	name := strings.TrimSpace(field.Options)
	return name, name != ""
}

// WithField returns a new schema with an added/updated field
func (s DocumentSchema) WithField(field FieldDefinition) DocumentSchema {
	newFields := copyFields(s.Fields)

	found := false
	for i, existing := range newFields {
		if existing.Name == field.Name {
			newFields[i] = field
			found = true
			break
		}
	}
	if !found {
		newFields = append(newFields, field)
	}

	clone := s
	clone.Fields = newFields
	clone.UpdatedAt = time.Now()
	return clone
}

// GetFieldsAsJSONB returns the fields as JSONB for database storage
func (s DocumentSchema) GetFieldsAsJSONB() (json.RawMessage, error) {
	if s.Fields == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(s.Fields)
}

// FromJSONBFields decodes stored field definitions.
func FromJSONBFields(fieldsJSON json.RawMessage) ([]FieldDefinition, error) {
	var fields []FieldDefinition
	if len(fieldsJSON) == 0 {
		return fields, nil
	}
	err := json.Unmarshal(fieldsJSON, &fields)
	return fields, err
}

// copyFields creates a copy of the fields slice to keep schemas immutable
func copyFields(fields []FieldDefinition) []FieldDefinition {
	if fields == nil {
		return nil
	}
	newFields := make([]FieldDefinition, len(fields))
	copy(newFields, fields)
	return newFields
}
