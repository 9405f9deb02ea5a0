package domain

import (
	"bytes"
	"encoding/json"
)

// DocumentState captures lifecycle situations in which workflow gating is bypassed.
type DocumentState string

const (
	DocumentStateNone       DocumentState = ""
	DocumentStateCancelling DocumentState = "cancelling"
	DocumentStateAmending   DocumentState = "amending"
)

// Bypass reports whether transitions must always run in this state.
func (s DocumentState) Bypass() bool {
	return s == DocumentStateCancelling || s == DocumentStateAmending
}

// Document is the host document as seen by the gate.
type Document struct {
	DocumentType string           `json:"document_type"`
	Name         string           `json:"name"`
	Values       DocumentSnapshot `json:"values"`
	State        DocumentState    `json:"state,omitempty"`
}

// Row is one record of a child collection.
type Row map[string]any

// DocumentSnapshot is a read-only view of a document's field values at one
// point in time. Missing fields read as nil.
type DocumentSnapshot struct {
	fields map[string]any
}

// NewDocumentSnapshot copies the given values into a snapshot.
func NewDocumentSnapshot(fields map[string]any) DocumentSnapshot {
	return DocumentSnapshot{fields: cloneProperties(fields)}
}

// Get returns the value of a direct field, or nil when absent.
func (s DocumentSnapshot) Get(field string) any {
	if s.fields == nil {
		return nil
	}
	return s.fields[field]
}

// Has reports whether the field is present in the snapshot.
func (s DocumentSnapshot) Has(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// Rows returns the rows of a child collection in order. Non-list values and
// missing collections read as empty; non-object rows read as empty rows.
func (s DocumentSnapshot) Rows(collection string) []Row {
	switch typed := s.Get(collection).(type) {
	case []Row:
		return typed
	case []map[string]any:
		rows := make([]Row, len(typed))
		for i, item := range typed {
			rows[i] = Row(item)
		}
		return rows
	case []any:
		rows := make([]Row, len(typed))
		for i, item := range typed {
			switch r := item.(type) {
			case map[string]any:
				rows[i] = Row(r)
			case Row:
				rows[i] = r
			default:
				rows[i] = nil
			}
		}
		return rows
	default:
		return nil
	}
}

// Fields returns a copy of the underlying values.
func (s DocumentSnapshot) Fields() map[string]any {
	return cloneProperties(s.fields)
}

// MarshalJSON encodes the snapshot as a plain object.
func (s DocumentSnapshot) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.fields)
}

// UnmarshalJSON decodes a plain object into the snapshot. Numbers are kept
// as json.Number so large integers survive without float rounding.
func (s *DocumentSnapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	s.fields = fields
	return nil
}

// Get returns the value of a field within the row, or nil when absent.
func (r Row) Get(field string) any {
	if r == nil {
		return nil
	}
	return r[field]
}

func cloneProperties(input map[string]any) map[string]any {
	if input == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
