package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldChange is one detected difference between the before and current state
// of a tracked field. Row is set for child collection changes.
type FieldChange struct {
	Path     string `json:"path"`
	Label    string `json:"label"`
	Row      *int   `json:"row,omitempty"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// SummaryLine renders the change as "label: old → new".
func (c FieldChange) SummaryLine() string {
	return fmt.Sprintf("%s: %s → %s", c.Label, DisplayValue(c.OldValue), DisplayValue(c.NewValue))
}

// SerializeValue converts a field value into the canonical string stored in
// change log entries. nil stays nil; strings are kept verbatim; maps and
// sequences become JSON with sorted keys; other scalars become JSON literals.
func SerializeValue(value any) (*string, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case string:
		out := typed
		return &out, nil
	}

	encoded, err := canonicalJSON(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value %v: %w", value, err)
	}
	return &encoded, nil
}

// DisplayValue renders a value for human-readable summaries. Values that
// cannot be encoded fall back to fmt formatting.
func DisplayValue(value any) string {
	serialized, err := SerializeValue(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	if serialized == nil {
		return "None"
	}
	return *serialized
}

func canonicalJSON(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
