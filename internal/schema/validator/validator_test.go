package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/fieldgate/internal/domain"
)

type stubSchemas map[string]domain.DocumentSchema

func (s stubSchemas) GetSchema(_ context.Context, name string) (domain.DocumentSchema, error) {
	schema, ok := s[name]
	if !ok {
		return domain.DocumentSchema{}, domain.ErrNotFound
	}
	return schema, nil
}

func salesOrderSchemas() stubSchemas {
	return stubSchemas{
		"Sales Order": domain.NewDocumentSchema("Sales Order", "", []domain.FieldDefinition{
			{Name: "status", Label: "Status", Type: domain.FieldTypeSelect},
			{Name: "customer", Type: domain.FieldTypeLink},
			{Name: "items", Label: "Items", Type: domain.FieldTypeTable, Options: "Sales Order Item"},
			{Name: "taxes", Label: "Taxes", Type: domain.FieldTypeTable, Options: "Missing Child"},
		}),
		"Sales Order Item": domain.NewDocumentSchema("Sales Order Item", "", []domain.FieldDefinition{
			{Name: "qty", Label: "Quantity", Type: domain.FieldTypeFloat},
		}),
	}
}

func TestResolve_DirectFieldPopulatesMetadata(t *testing.T) {
	spec := domain.DirectField("status")

	resolved, err := Resolve(context.Background(), salesOrderSchemas(), "Sales Order", &spec)
	require.NoError(t, err)

	assert.Equal(t, "Status", spec.Label)
	assert.Equal(t, domain.FieldTypeSelect, spec.FieldType)
	assert.Equal(t, "status", resolved.Field.Name)
	assert.Nil(t, resolved.Collection)
}

func TestResolve_DirectFieldWithoutLabelFallsBackToName(t *testing.T) {
	spec := domain.DirectField("customer")

	_, err := Resolve(context.Background(), salesOrderSchemas(), "Sales Order", &spec)
	require.NoError(t, err)
	assert.Equal(t, "customer", spec.Label)
}

func TestResolve_ChildFieldComposesLabel(t *testing.T) {
	spec := domain.ChildField("items", "qty")

	resolved, err := Resolve(context.Background(), salesOrderSchemas(), "Sales Order", &spec)
	require.NoError(t, err)

	assert.Equal(t, "Items → Quantity", spec.Label)
	assert.Equal(t, domain.FieldTypeFloat, spec.FieldType)
	assert.Equal(t, "Sales Order Item", resolved.ChildSchema)
}

func TestResolve_UnknownFields(t *testing.T) {
	cases := []struct {
		name string
		spec domain.TrackedFieldSpec
		kind domain.UnknownFieldKind
	}{
		{"missing direct field", domain.DirectField("nope"), domain.UnknownDirectField},
		{"missing collection", domain.ChildField("lines", "qty"), domain.UnknownChildTable},
		{"collection is not a table", domain.ChildField("status", "qty"), domain.UnknownChildTable},
		{"child schema cannot load", domain.ChildField("taxes", "rate"), domain.UnknownChildTable},
		{"missing child field", domain.ChildField("items", "rate"), domain.UnknownChildTableField},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := tc.spec
			_, err := Resolve(context.Background(), salesOrderSchemas(), "Sales Order", &spec)

			var unknown *domain.UnknownFieldError
			require.True(t, errors.As(err, &unknown), "expected UnknownFieldError, got %v", err)
			assert.Equal(t, tc.kind, unknown.Kind)
		})
	}
}

func TestValidateDefinition_RequiresTrackedFields(t *testing.T) {
	def := domain.NewWorkflowDefinition("SO Approval", "Sales Order", nil)

	err := ValidateDefinition(context.Background(), salesOrderSchemas(), &def)

	var missing *domain.MissingTrackedFieldsError
	require.True(t, errors.As(err, &missing), "expected MissingTrackedFieldsError, got %v", err)
}

func TestValidateDefinition_SkipsWhenDisabled(t *testing.T) {
	def := domain.NewWorkflowDefinition("SO Approval", "Sales Order", []domain.TrackedFieldSpec{domain.DirectField("nope")})
	def.FieldLevelWorkflowEnabled = false

	require.NoError(t, ValidateDefinition(context.Background(), salesOrderSchemas(), &def))
}

func TestValidateDefinition_NamesFirstFailingSpec(t *testing.T) {
	def := domain.NewWorkflowDefinition("SO Approval", "Sales Order", []domain.TrackedFieldSpec{
		domain.DirectField("status"),
		domain.ChildField("items", "rate"),
		domain.DirectField("nope"),
	})

	err := ValidateDefinition(context.Background(), salesOrderSchemas(), &def)

	var defErr *domain.DefinitionError
	require.True(t, errors.As(err, &defErr), "expected DefinitionError, got %v", err)
	assert.Equal(t, 1, defErr.Index)
	assert.Equal(t, "items.rate", defErr.Spec.Path())
	assert.Contains(t, err.Error(), "rate")

	var unknown *domain.UnknownFieldError
	assert.True(t, errors.As(err, &unknown))
}

func TestValidateDefinition_PopulatesLabels(t *testing.T) {
	def := domain.NewWorkflowDefinition("SO Approval", "Sales Order", []domain.TrackedFieldSpec{
		domain.DirectField("status"),
		domain.ChildField("items", "qty"),
	})

	require.NoError(t, ValidateDefinition(context.Background(), salesOrderSchemas(), &def))
	assert.Equal(t, "Status", def.TrackedFields[0].Label)
	assert.Equal(t, "Items → Quantity", def.TrackedFields[1].Label)
}

func TestPopulateMetadata_ReportsFailuresWithoutRejecting(t *testing.T) {
	def := domain.NewWorkflowDefinition("SO Approval", "Sales Order", []domain.TrackedFieldSpec{
		domain.DirectField("status"),
		domain.DirectField("nope"),
	})

	failures := PopulateMetadata(context.Background(), salesOrderSchemas(), &def)

	require.Len(t, failures, 1)
	assert.Equal(t, "nope", failures[0].Field)
	assert.Equal(t, "Status", def.TrackedFields[0].Label)
}
