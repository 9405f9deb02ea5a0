package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackedFieldPath(t *testing.T) {
	assert.Equal(t, "status", DirectField("status").Path())
	assert.Equal(t, "items.qty", ChildField("items", "qty").Path())
}

func TestTrackedFieldCheckAddressing(t *testing.T) {
	valid := []TrackedFieldSpec{
		DirectField("status"),
		ChildField("items", "qty"),
	}
	for _, spec := range valid {
		assert.NoError(t, spec.CheckAddressing(), "expected %s to be valid", spec)
	}

	invalid := []TrackedFieldSpec{
		{},
		{FieldName: "status", ChildTableName: "items"},
		{IsChildTableField: true, ChildTableName: "items"},
		{IsChildTableField: true, FieldName: "status", ChildTableName: "items", ChildFieldName: "qty"},
	}
	for _, spec := range invalid {
		var target *InvalidTrackedFieldError
		assert.ErrorAs(t, spec.CheckAddressing(), &target, "spec %+v", spec)
	}
}

func TestDocumentSnapshotRows(t *testing.T) {
	var decoded map[string]any
	raw := `{"status":"Draft","items":[{"qty":1},{"qty":2},"junk"],"notes":"x"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	snapshot := NewDocumentSnapshot(decoded)

	rows := snapshot.Rows("items")
	require.Len(t, rows, 3)
	assert.Equal(t, float64(2), rows[1].Get("qty"))
	assert.Nil(t, rows[2].Get("qty"), "non-object row reads as empty")
	assert.Nil(t, snapshot.Rows("notes"))
	assert.Nil(t, snapshot.Rows("missing"))
	assert.Nil(t, snapshot.Get("missing"))
}

func TestDocumentSnapshotDecodingKeepsNumbersExact(t *testing.T) {
	var snapshot DocumentSnapshot
	raw := `{"ref":9007199254740993,"items":[{"qty":1.5}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))

	assert.Equal(t, json.Number("9007199254740993"), snapshot.Get("ref"))
	rows := snapshot.Rows("items")
	require.Len(t, rows, 1)
	assert.Equal(t, json.Number("1.5"), rows[0].Get("qty"))

	encoded, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(encoded))
}

func TestWorkflowDefinitionGated(t *testing.T) {
	var missing *WorkflowDefinition
	assert.False(t, missing.Gated(), "nil definition must not gate")

	def := NewWorkflowDefinition("SO Approval", "Sales Order", []TrackedFieldSpec{DirectField("status")})
	assert.True(t, def.Gated())

	def.FieldLevelWorkflowEnabled = false
	assert.False(t, def.Gated())
}
