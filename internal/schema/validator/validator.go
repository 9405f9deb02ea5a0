package validator

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/rpattn/fieldgate/internal/domain"
)

// SchemaSource loads document schemas by name.
type SchemaSource interface {
	GetSchema(ctx context.Context, name string) (domain.DocumentSchema, error)
}

// ResolvedField is a tracked field spec bound to its schema definitions.
type ResolvedField struct {
	Spec        domain.TrackedFieldSpec
	Field       domain.FieldDefinition
	Collection  *domain.FieldDefinition
	ChildSchema string
}

// Resolve checks that spec addresses an existing field of documentType and
// fills the spec's Label and FieldType from the schema.
func Resolve(ctx context.Context, schemas SchemaSource, documentType string, spec *domain.TrackedFieldSpec) (ResolvedField, error) {
	if err := spec.CheckAddressing(); err != nil {
		return ResolvedField{}, err
	}

	schema, err := loadSchema(ctx, schemas, documentType)
	if err != nil {
		return ResolvedField{}, err
	}

	if !spec.IsChildTableField {
		field, ok := schema.GetField(spec.FieldName)
		if !ok {
			return ResolvedField{}, &domain.UnknownFieldError{Kind: domain.UnknownDirectField, Field: spec.FieldName, Schema: documentType}
		}
		spec.Label = field.DisplayLabel()
		spec.FieldType = field.Type
		return ResolvedField{Spec: *spec, Field: field}, nil
	}

	collection, ok := schema.GetField(spec.ChildTableName)
	if !ok {
		return ResolvedField{}, &domain.UnknownFieldError{Kind: domain.UnknownChildTable, Field: spec.ChildTableName, Schema: documentType}
	}
	childName, ok := schema.ChildSchemaName(spec.ChildTableName)
	if !ok {
		return ResolvedField{}, &domain.UnknownFieldError{Kind: domain.UnknownChildTable, Field: spec.ChildTableName, Schema: documentType}
	}

	childSchema, err := schemas.GetSchema(ctx, childName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ResolvedField{}, &domain.UnknownFieldError{Kind: domain.UnknownChildTable, Field: spec.ChildTableName, Schema: documentType}
		}
		return ResolvedField{}, errors.Wrapf(err, "failed to load child schema %s", childName)
	}

	field, ok := childSchema.GetField(spec.ChildFieldName)
	if !ok {
		return ResolvedField{}, &domain.UnknownFieldError{Kind: domain.UnknownChildTableField, Field: spec.ChildFieldName, Schema: childName}
	}

	spec.Label = collection.DisplayLabel() + " → " + field.DisplayLabel()
	spec.FieldType = field.Type

	return ResolvedField{Spec: *spec, Field: field, Collection: &collection, ChildSchema: childName}, nil
}

// ValidateDefinition rejects a definition that enables field level workflow
// without tracked fields, or whose tracked fields do not resolve. Resolved
// labels and types are written back into def.
func ValidateDefinition(ctx context.Context, schemas SchemaSource, def *domain.WorkflowDefinition) error {
	if strings.TrimSpace(def.DocumentType) == "" {
		return errors.New("workflow document type is required")
	}
	if !def.FieldLevelWorkflowEnabled {
		return nil
	}
	if len(def.TrackedFields) == 0 {
		return &domain.MissingTrackedFieldsError{Workflow: def.Name}
	}

	for i := range def.TrackedFields {
		if _, err := Resolve(ctx, schemas, def.DocumentType, &def.TrackedFields[i]); err != nil {
			return &domain.DefinitionError{Workflow: def.Name, Index: i, Spec: def.TrackedFields[i], Err: err}
		}
	}

	return nil
}

// PopulateMetadata fills labels and types wherever the schema allows and
// reports every failure as a MetadataLookupFailure. It never rejects.
func PopulateMetadata(ctx context.Context, schemas SchemaSource, def *domain.WorkflowDefinition) []*domain.MetadataLookupFailure {
	var failures []*domain.MetadataLookupFailure
	for i := range def.TrackedFields {
		spec := &def.TrackedFields[i]
		if spec.CheckAddressing() != nil {
			continue
		}
		if _, err := Resolve(ctx, schemas, def.DocumentType, spec); err != nil {
			failures = append(failures, &domain.MetadataLookupFailure{Schema: def.DocumentType, Field: spec.Path(), Err: err})
		}
	}
	return failures
}

func loadSchema(ctx context.Context, schemas SchemaSource, name string) (domain.DocumentSchema, error) {
	schema, err := schemas.GetSchema(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DocumentSchema{}, errors.Wrapf(err, "schema %s", name)
		}
		return domain.DocumentSchema{}, errors.Wrapf(err, "failed to load schema %s", name)
	}
	return schema, nil
}
