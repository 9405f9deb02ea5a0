package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/fieldgate/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultChangeLogLimit = 200
	changeLogColumns      = `id, reference_doctype, reference_name, workflow_name, action, changed_field, old_value, new_value, changed_by, changed_on`
)

type changeLogRepository struct {
	pool *pgxpool.Pool
}

// NewChangeLogRepository wires an append-only change log backed by pgxpool.
func NewChangeLogRepository(pool *pgxpool.Pool) ChangeLogRepository {
	return &changeLogRepository{pool: pool}
}

func (r *changeLogRepository) Insert(ctx context.Context, entry domain.ChangeLogEntry) (uuid.UUID, error) {
	if r.pool == nil {
		return uuid.Nil, fmt.Errorf("change log repository not initialized")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO workflow_field_change_logs
		   (id, reference_doctype, reference_name, workflow_name, action, changed_field, old_value, new_value, changed_by, changed_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID,
		entry.ReferenceType,
		entry.ReferenceName,
		entry.WorkflowName,
		entry.Action,
		entry.ChangedField,
		entry.OldValue,
		entry.NewValue,
		entry.ChangedBy,
		entry.ChangedOn,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert change log entry: %w", err)
	}

	return entry.ID, nil
}

func (r *changeLogRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ChangeLogEntry, error) {
	if r.pool == nil {
		return domain.ChangeLogEntry{}, fmt.Errorf("change log repository not initialized")
	}

	row := r.pool.QueryRow(ctx, `SELECT `+changeLogColumns+` FROM workflow_field_change_logs WHERE id = $1`, id)
	entry, err := scanChangeLogEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChangeLogEntry{}, fmt.Errorf("change log entry %s: %w", id, domain.ErrNotFound)
		}
		return domain.ChangeLogEntry{}, fmt.Errorf("failed to get change log entry: %w", err)
	}
	return entry, nil
}

func (r *changeLogRepository) List(ctx context.Context, filter domain.ChangeLogFilter) ([]domain.ChangeLogEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("change log repository not initialized")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultChangeLogLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		conditions []string
		args       []any
	)
	addCondition := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addCondition("reference_doctype", filter.ReferenceType)
	addCondition("reference_name", filter.ReferenceName)
	addCondition("workflow_name", filter.WorkflowName)

	query := `SELECT ` + changeLogColumns + ` FROM workflow_field_change_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY seq ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change log entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.ChangeLogEntry{}
	for rows.Next() {
		entry, scanErr := scanChangeLogEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan change log entry: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate change log entries: %w", rowsErr)
	}

	return entries, nil
}

// Update never writes. Existing entries are refused with an
// ImmutabilityViolation; the table trigger backs this up for direct SQL.
func (r *changeLogRepository) Update(ctx context.Context, entry domain.ChangeLogEntry) error {
	if _, err := r.GetByID(ctx, entry.ID); err != nil {
		return err
	}
	return &domain.ImmutabilityViolation{EntryID: entry.ID, Operation: "update"}
}

func (r *changeLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return &domain.ImmutabilityViolation{EntryID: id, Operation: "delete"}
}

func scanChangeLogEntry(row pgx.Row) (domain.ChangeLogEntry, error) {
	var (
		entry     domain.ChangeLogEntry
		oldValue  pgtype.Text
		newValue  pgtype.Text
		changedOn pgtype.Timestamptz
	)
	if err := row.Scan(
		&entry.ID,
		&entry.ReferenceType,
		&entry.ReferenceName,
		&entry.WorkflowName,
		&entry.Action,
		&entry.ChangedField,
		&oldValue,
		&newValue,
		&entry.ChangedBy,
		&changedOn,
	); err != nil {
		return domain.ChangeLogEntry{}, err
	}

	if oldValue.Valid {
		value := oldValue.String
		entry.OldValue = &value
	}
	if newValue.Valid {
		value := newValue.String
		entry.NewValue = &value
	}
	if changedOn.Valid {
		entry.ChangedOn = changedOn.Time
	}
	return entry, nil
}
