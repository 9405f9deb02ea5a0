package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fieldgate/internal/db"
	"github.com/rpattn/fieldgate/internal/domain"
)

const workflowDefinitionColumns = `id, name, document_type, is_active, enable_field_level_workflow, tracked_fields, created_at, updated_at`

type workflowDefinitionRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowDefinitionRepository returns a repository for workflow definitions.
func NewWorkflowDefinitionRepository(pool *pgxpool.Pool) WorkflowDefinitionRepository {
	return &workflowDefinitionRepository{pool: pool}
}

func (r *workflowDefinitionRepository) Save(ctx context.Context, def domain.WorkflowDefinition) (domain.WorkflowDefinition, error) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	trackedJSON, err := def.GetTrackedFieldsAsJSONB()
	if err != nil {
		return domain.WorkflowDefinition{}, fmt.Errorf("marshal tracked fields: %w", err)
	}

	var saved domain.WorkflowDefinition
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if def.IsActive {
			if _, err := tx.Exec(
				ctx,
				`UPDATE workflow_definitions SET is_active = FALSE, updated_at = NOW()
				 WHERE document_type = $1 AND name <> $2 AND is_active`,
				def.DocumentType,
				def.Name,
			); err != nil {
				return fmt.Errorf("deactivate workflow definitions: %w", err)
			}
		}

		row := tx.QueryRow(
			ctx,
			`INSERT INTO workflow_definitions (id, name, document_type, is_active, enable_field_level_workflow, tracked_fields)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (name) DO UPDATE
			   SET document_type = EXCLUDED.document_type,
			       is_active = EXCLUDED.is_active,
			       enable_field_level_workflow = EXCLUDED.enable_field_level_workflow,
			       tracked_fields = EXCLUDED.tracked_fields,
			       updated_at = NOW()
			 RETURNING `+workflowDefinitionColumns,
			def.ID,
			def.Name,
			def.DocumentType,
			def.IsActive,
			def.FieldLevelWorkflowEnabled,
			trackedJSON,
		)

		var scanErr error
		saved, scanErr = scanWorkflowDefinition(row)
		if scanErr != nil {
			return fmt.Errorf("save workflow definition: %w", scanErr)
		}
		return nil
	})
	if err != nil {
		return domain.WorkflowDefinition{}, err
	}
	return saved, nil
}

func (r *workflowDefinitionRepository) GetByName(ctx context.Context, name string) (domain.WorkflowDefinition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workflowDefinitionColumns+` FROM workflow_definitions WHERE name = $1`, name)

	def, err := scanWorkflowDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WorkflowDefinition{}, fmt.Errorf("workflow definition %s: %w", name, domain.ErrNotFound)
		}
		return domain.WorkflowDefinition{}, fmt.Errorf("get workflow definition: %w", err)
	}
	return def, nil
}

func (r *workflowDefinitionRepository) GetActiveByDocumentTypes(ctx context.Context, documentTypes []string) (map[string]domain.WorkflowDefinition, error) {
	result := make(map[string]domain.WorkflowDefinition, len(documentTypes))
	if len(documentTypes) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+workflowDefinitionColumns+` FROM workflow_definitions
		 WHERE is_active AND document_type = ANY($1)`,
		documentTypes,
	)
	if err != nil {
		return nil, fmt.Errorf("get active workflow definitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		def, scanErr := scanWorkflowDefinition(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan workflow definition: %w", scanErr)
		}
		result[def.DocumentType] = def
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow definitions: %w", err)
	}
	return result, nil
}

func (r *workflowDefinitionRepository) List(ctx context.Context) ([]domain.WorkflowDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+workflowDefinitionColumns+` FROM workflow_definitions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list workflow definitions: %w", err)
	}
	defer rows.Close()

	defs := []domain.WorkflowDefinition{}
	for rows.Next() {
		def, scanErr := scanWorkflowDefinition(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan workflow definition: %w", scanErr)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow definitions: %w", err)
	}
	return defs, nil
}

func scanWorkflowDefinition(row pgx.Row) (domain.WorkflowDefinition, error) {
	var (
		def         domain.WorkflowDefinition
		trackedJSON []byte
	)
	if err := row.Scan(
		&def.ID,
		&def.Name,
		&def.DocumentType,
		&def.IsActive,
		&def.FieldLevelWorkflowEnabled,
		&trackedJSON,
		&def.CreatedAt,
		&def.UpdatedAt,
	); err != nil {
		return domain.WorkflowDefinition{}, err
	}

	tracked, err := domain.FromJSONBTrackedFields(trackedJSON)
	if err != nil {
		return domain.WorkflowDefinition{}, fmt.Errorf("decode tracked fields for %s: %w", def.Name, err)
	}
	def.TrackedFields = tracked
	return def, nil
}
