package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fieldgate/internal/domain"
)

const documentSchemaColumns = `id, name, description, is_child, fields, created_at, updated_at`

// documentSchemaRepository implements DocumentSchemaRepository on Postgres
type documentSchemaRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentSchemaRepository creates a new document schema repository
func NewDocumentSchemaRepository(pool *pgxpool.Pool) DocumentSchemaRepository {
	return &documentSchemaRepository{pool: pool}
}

// Upsert inserts the schema or replaces the one stored under the same name
func (r *documentSchemaRepository) Upsert(ctx context.Context, schema domain.DocumentSchema) (domain.DocumentSchema, error) {
	if schema.ID == uuid.Nil {
		schema.ID = uuid.New()
	}
	fieldsJSON, err := schema.GetFieldsAsJSONB()
	if err != nil {
		return domain.DocumentSchema{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO document_schemas (id, name, description, is_child, fields)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE
		   SET description = EXCLUDED.description,
		       is_child = EXCLUDED.is_child,
		       fields = EXCLUDED.fields,
		       updated_at = NOW()
		 RETURNING `+documentSchemaColumns,
		schema.ID,
		schema.Name,
		schema.Description,
		schema.IsChild,
		fieldsJSON,
	)

	saved, err := scanDocumentSchema(row)
	if err != nil {
		return domain.DocumentSchema{}, fmt.Errorf("failed to upsert document schema: %w", err)
	}
	return saved, nil
}

// GetByName retrieves a document schema by name
func (r *documentSchemaRepository) GetByName(ctx context.Context, name string) (domain.DocumentSchema, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentSchemaColumns+` FROM document_schemas WHERE name = $1`, name)

	schema, err := scanDocumentSchema(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DocumentSchema{}, fmt.Errorf("document schema %s: %w", name, domain.ErrNotFound)
		}
		return domain.DocumentSchema{}, fmt.Errorf("failed to get document schema: %w", err)
	}
	return schema, nil
}

// GetByNames retrieves every schema whose name is listed. Unknown names are skipped.
func (r *documentSchemaRepository) GetByNames(ctx context.Context, names []string) ([]domain.DocumentSchema, error) {
	if len(names) == 0 {
		return []domain.DocumentSchema{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+documentSchemaColumns+` FROM document_schemas WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to get document schemas: %w", err)
	}
	defer rows.Close()

	return collectDocumentSchemas(rows)
}

// List retrieves every stored schema ordered by name
func (r *documentSchemaRepository) List(ctx context.Context) ([]domain.DocumentSchema, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+documentSchemaColumns+` FROM document_schemas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list document schemas: %w", err)
	}
	defer rows.Close()

	return collectDocumentSchemas(rows)
}

func collectDocumentSchemas(rows pgx.Rows) ([]domain.DocumentSchema, error) {
	schemas := []domain.DocumentSchema{}
	for rows.Next() {
		schema, err := scanDocumentSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document schema: %w", err)
		}
		schemas = append(schemas, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document schemas: %w", err)
	}
	return schemas, nil
}

func scanDocumentSchema(row pgx.Row) (domain.DocumentSchema, error) {
	var (
		schema     domain.DocumentSchema
		fieldsJSON []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(&schema.ID, &schema.Name, &schema.Description, &schema.IsChild, &fieldsJSON, &createdAt, &updatedAt); err != nil {
		return domain.DocumentSchema{}, err
	}

	fields, err := domain.FromJSONBFields(fieldsJSON)
	if err != nil {
		return domain.DocumentSchema{}, fmt.Errorf("failed to unmarshal fields for schema %s: %w", schema.Name, err)
	}
	schema.Fields = fields
	schema.CreatedAt = createdAt
	schema.UpdatedAt = updatedAt
	return schema, nil
}
