// Package definitions reads document schemas and workflow definitions from
// YAML bundles, for offline validation and for seeding a store.
package definitions

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/repository"
	"github.com/rpattn/fieldgate/internal/schema/validator"
)

// Bundle is a self-contained set of schemas and the workflows defined over them.
type Bundle struct {
	Schemas   []domain.DocumentSchema
	Workflows []domain.WorkflowDefinition

	byName map[string]domain.DocumentSchema
}

type bundleFile struct {
	Schemas   []domain.DocumentSchema `yaml:"schemas"`
	Workflows []workflowFile          `yaml:"workflows"`
}

// workflowFile mirrors domain.WorkflowDefinition with both flags defaulting
// to true when omitted.
type workflowFile struct {
	Name                      string                    `yaml:"name"`
	DocumentType              string                    `yaml:"document_type"`
	IsActive                  *bool                     `yaml:"is_active"`
	FieldLevelWorkflowEnabled *bool                     `yaml:"enable_field_level_workflow"`
	TrackedFields             []domain.TrackedFieldSpec `yaml:"tracked_fields"`
}

// LoadFile parses the bundle stored at path.
func LoadFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	bundle, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return bundle, nil
}

// Parse decodes a YAML bundle. Unknown keys are rejected.
func Parse(data []byte) (*Bundle, error) {
	var raw bundleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	bundle := &Bundle{byName: make(map[string]domain.DocumentSchema, len(raw.Schemas))}
	for _, schema := range raw.Schemas {
		if strings.TrimSpace(schema.Name) == "" {
			return nil, errors.New("schema without a name")
		}
		if _, dup := bundle.byName[schema.Name]; dup {
			return nil, errors.Errorf("schema %s declared twice", schema.Name)
		}
		isChild := schema.IsChild
		schema = domain.NewDocumentSchema(schema.Name, schema.Description, schema.Fields)
		schema.IsChild = isChild
		bundle.byName[schema.Name] = schema
		bundle.Schemas = append(bundle.Schemas, schema)
	}

	for _, wf := range raw.Workflows {
		def := domain.NewWorkflowDefinition(wf.Name, wf.DocumentType, wf.TrackedFields)
		if wf.IsActive != nil {
			def.IsActive = *wf.IsActive
		}
		if wf.FieldLevelWorkflowEnabled != nil {
			def.FieldLevelWorkflowEnabled = *wf.FieldLevelWorkflowEnabled
		}
		bundle.Workflows = append(bundle.Workflows, def)
	}
	return bundle, nil
}

// GetSchema implements validator.SchemaSource over the bundle's schemas.
func (b *Bundle) GetSchema(_ context.Context, name string) (domain.DocumentSchema, error) {
	schema, ok := b.byName[name]
	if !ok {
		return domain.DocumentSchema{}, errors.Wrapf(domain.ErrNotFound, "document schema %s", name)
	}
	return schema, nil
}

// Result is the validation outcome for one workflow of a bundle.
type Result struct {
	Workflow string
	Err      error
}

// Validate checks every workflow against the bundle's schemas. Resolved
// labels and types are written back into b.Workflows.
func (b *Bundle) Validate(ctx context.Context) []Result {
	results := make([]Result, 0, len(b.Workflows))
	for i := range b.Workflows {
		def := &b.Workflows[i]
		results = append(results, Result{Workflow: def.Name, Err: validator.ValidateDefinition(ctx, b, def)})
	}
	return results
}

// DefinitionSaver persists a validated workflow definition.
type DefinitionSaver interface {
	Save(ctx context.Context, schemas validator.SchemaSource, def domain.WorkflowDefinition) (domain.WorkflowDefinition, error)
}

// Seed stores every schema, then saves every workflow through saver. The
// first failure stops seeding.
func (b *Bundle) Seed(ctx context.Context, schemas repository.DocumentSchemaRepository, saver DefinitionSaver) error {
	for _, schema := range b.Schemas {
		if _, err := schemas.Upsert(ctx, schema); err != nil {
			return errors.Wrapf(err, "seeding schema %s", schema.Name)
		}
	}
	for _, def := range b.Workflows {
		if _, err := saver.Save(ctx, b, def); err != nil {
			return errors.Wrapf(err, "seeding workflow %s", def.Name)
		}
	}
	log.WithFields(log.Fields{"schemas": len(b.Schemas), "workflows": len(b.Workflows)}).Info("seeded definitions")
	return nil
}
