package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/repository"

	"github.com/graph-gophers/dataloader"
)

// Loaders memoizes schema and active definition lookups for the lifetime of
// one operation. Build a new set per request; never share one across requests.
type Loaders struct {
	schemas     *dataloader.Loader
	definitions *dataloader.Loader
}

// New builds fresh loaders over the given repositories.
func New(schemas repository.DocumentSchemaRepository, definitions repository.WorkflowDefinitionRepository) *Loaders {
	return &Loaders{
		schemas:     dataloader.NewBatchedLoader(schemaBatchFn(schemas), dataloader.WithWait(2*time.Millisecond)),
		definitions: dataloader.NewBatchedLoader(definitionBatchFn(definitions), dataloader.WithWait(2*time.Millisecond)),
	}
}

// GetSchema returns the named schema. Unknown names yield domain.ErrNotFound.
func (l *Loaders) GetSchema(ctx context.Context, name string) (domain.DocumentSchema, error) {
	data, err := l.schemas.Load(ctx, dataloader.StringKey(name))()
	if err != nil {
		return domain.DocumentSchema{}, err
	}
	schema, ok := data.(domain.DocumentSchema)
	if !ok {
		return domain.DocumentSchema{}, fmt.Errorf("unexpected schema loader result %T", data)
	}
	return schema, nil
}

// ActiveDefinition returns the active workflow definition for documentType,
// or nil when the type has none.
func (l *Loaders) ActiveDefinition(ctx context.Context, documentType string) (*domain.WorkflowDefinition, error) {
	data, err := l.definitions.Load(ctx, dataloader.StringKey(documentType))()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	def, ok := data.(domain.WorkflowDefinition)
	if !ok {
		return nil, fmt.Errorf("unexpected definition loader result %T", data)
	}
	return &def, nil
}

func schemaBatchFn(repo repository.DocumentSchemaRepository) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		names := keys.Keys()

		schemas, err := repo.GetByNames(ctx, names)
		if err != nil {
			return errorResults(len(keys), err)
		}

		byName := make(map[string]domain.DocumentSchema, len(schemas))
		for _, schema := range schemas {
			byName[schema.Name] = schema
		}

		results := make([]*dataloader.Result, len(names))
		for i, name := range names {
			if schema, ok := byName[name]; ok {
				results[i] = &dataloader.Result{Data: schema}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("document schema %s: %w", name, domain.ErrNotFound)}
			}
		}
		return results
	}
}

func definitionBatchFn(repo repository.WorkflowDefinitionRepository) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		documentTypes := keys.Keys()

		active, err := repo.GetActiveByDocumentTypes(ctx, documentTypes)
		if err != nil {
			return errorResults(len(keys), err)
		}

		results := make([]*dataloader.Result, len(documentTypes))
		for i, documentType := range documentTypes {
			if def, ok := active[documentType]; ok {
				results[i] = &dataloader.Result{Data: def}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}
}

func errorResults(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}
