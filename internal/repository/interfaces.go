package repository

import (
	"context"

	"github.com/rpattn/fieldgate/internal/domain"

	"github.com/google/uuid"
)

// DocumentSchemaRepository stores the host's document schemas.
type DocumentSchemaRepository interface {
	Upsert(ctx context.Context, schema domain.DocumentSchema) (domain.DocumentSchema, error)
	GetByName(ctx context.Context, name string) (domain.DocumentSchema, error)
	GetByNames(ctx context.Context, names []string) ([]domain.DocumentSchema, error)
	List(ctx context.Context) ([]domain.DocumentSchema, error)
}

// WorkflowDefinitionRepository stores workflow definitions and their tracked
// field declarations. At most one definition is active per document type.
type WorkflowDefinitionRepository interface {
	// Save upserts by name. Saving an active definition deactivates any other
	// active definition for the same document type.
	Save(ctx context.Context, def domain.WorkflowDefinition) (domain.WorkflowDefinition, error)
	GetByName(ctx context.Context, name string) (domain.WorkflowDefinition, error)
	// GetActiveByDocumentTypes returns the active definition keyed by document
	// type; types without one are absent from the map.
	GetActiveByDocumentTypes(ctx context.Context, documentTypes []string) (map[string]domain.WorkflowDefinition, error)
	List(ctx context.Context) ([]domain.WorkflowDefinition, error)
}

// ChangeLogRepository is the append-only audit store. Update and Delete exist
// so that callers get a typed refusal: they always fail with
// domain.ImmutabilityViolation for existing entries.
type ChangeLogRepository interface {
	Insert(ctx context.Context, entry domain.ChangeLogEntry) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ChangeLogEntry, error)
	List(ctx context.Context, filter domain.ChangeLogFilter) ([]domain.ChangeLogEntry, error)
	Update(ctx context.Context, entry domain.ChangeLogEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}
