package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/loader"
	"github.com/rpattn/fieldgate/internal/repository"
)

func setup(t *testing.T) (*repository.MemoryStore, *Service) {
	t.Helper()
	store := repository.NewMemoryStore()
	_, err := store.Schemas().Upsert(context.Background(), domain.NewDocumentSchema("Sales Order", "", []domain.FieldDefinition{
		{Name: "status", Label: "Status", Type: domain.FieldTypeSelect},
		{Name: "grand_total", Type: domain.FieldTypeCurrency},
	}))
	require.NoError(t, err)
	return store, NewService(store.Definitions())
}

func TestSavePersistsResolvedMetadata(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	schemas := loader.New(store.Schemas(), store.Definitions())

	def := domain.NewWorkflowDefinition("SO Approval", "Sales Order", []domain.TrackedFieldSpec{
		domain.DirectField("status"),
		domain.DirectField("grand_total"),
	})
	saved, err := svc.Save(ctx, schemas, def)
	require.NoError(t, err)

	assert.Equal(t, "Status", saved.TrackedFields[0].Label)
	assert.Equal(t, domain.FieldTypeSelect, saved.TrackedFields[0].FieldType)
	assert.Equal(t, "grand_total", saved.TrackedFields[1].Label)

	active, err := svc.Active(ctx, "Sales Order")
	require.NoError(t, err)
	assert.Equal(t, "SO Approval", active.Name)
}

func TestSaveRejectsInvalidDefinitions(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	schemas := loader.New(store.Schemas(), store.Definitions())

	empty := domain.NewWorkflowDefinition("Empty", "Sales Order", nil)
	_, err := svc.Save(ctx, schemas, empty)
	var missing *domain.MissingTrackedFieldsError
	require.ErrorAs(t, err, &missing)

	unknown := domain.NewWorkflowDefinition("Unknown", "Sales Order", []domain.TrackedFieldSpec{domain.DirectField("priority")})
	_, err = svc.Save(ctx, schemas, unknown)
	var unknownErr *domain.UnknownFieldError
	require.ErrorAs(t, err, &unknownErr)
	assert.Contains(t, err.Error(), "priority")

	defs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestSaveDisabledDefinitionSkipsValidation(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	schemas := loader.New(store.Schemas(), store.Definitions())

	def := domain.NewWorkflowDefinition("Draft Flow", "Sales Order", []domain.TrackedFieldSpec{
		domain.DirectField("status"),
		domain.DirectField("priority"),
	})
	def.FieldLevelWorkflowEnabled = false

	saved, err := svc.Save(ctx, schemas, def)
	require.NoError(t, err)
	assert.Equal(t, "Status", saved.TrackedFields[0].Label)
	assert.Empty(t, saved.TrackedFields[1].Label)
}

func TestActiveWithoutDefinition(t *testing.T) {
	_, svc := setup(t)

	_, err := svc.Active(context.Background(), "Invoice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveDeactivatesPreviousDefinition(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	schemas := loader.New(store.Schemas(), store.Definitions())

	_, err := svc.Save(ctx, schemas, domain.NewWorkflowDefinition("v1", "Sales Order", []domain.TrackedFieldSpec{domain.DirectField("status")}))
	require.NoError(t, err)
	_, err = svc.Save(ctx, schemas, domain.NewWorkflowDefinition("v2", "Sales Order", []domain.TrackedFieldSpec{domain.DirectField("grand_total")}))
	require.NoError(t, err)

	active, err := svc.Active(ctx, "Sales Order")
	require.NoError(t, err)
	assert.Equal(t, "v2", active.Name)
}
