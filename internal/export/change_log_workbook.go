package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/repository"
)

// SheetName is the worksheet holding exported change log entries.
const SheetName = "Change Log"

var changeLogHeaders = []any{
	"ID",
	"Reference Type",
	"Reference Name",
	"Workflow",
	"Action",
	"Changed Field",
	"Old Value",
	"New Value",
	"Changed By",
	"Changed On",
}

// Exporter streams change log entries into an .xlsx workbook.
type Exporter struct {
	changeLogs repository.ChangeLogRepository
	pageSize   int
}

type Option func(*Exporter)

// WithPageSize sets how many entries are read from the store per query.
func WithPageSize(size int) Option {
	return func(e *Exporter) {
		if size > 0 {
			e.pageSize = size
		}
	}
}

func NewExporter(changeLogs repository.ChangeLogRepository, opts ...Option) *Exporter {
	e := &Exporter{changeLogs: changeLogs, pageSize: 500}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WriteWorkbook writes every entry matching filter to w and returns how many
// rows were exported. filter.Limit and filter.Offset are ignored.
func (e *Exporter) WriteWorkbook(ctx context.Context, w io.Writer, filter domain.ChangeLogFilter) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("create stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, len(changeLogHeaders), 22); err != nil {
		return 0, fmt.Errorf("set column width: %w", err)
	}
	if err := sw.SetRow("A1", changeLogHeaders); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	exported := 0
	filter.Limit = e.pageSize
	filter.Offset = 0
	for {
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}
		entries, err := e.changeLogs.List(ctx, filter)
		if err != nil {
			return exported, fmt.Errorf("list change log entries: %w", err)
		}

		for _, entry := range entries {
			cell, err := excelize.CoordinatesToCellName(1, exported+2)
			if err != nil {
				return exported, fmt.Errorf("resolve cell: %w", err)
			}
			if err := sw.SetRow(cell, entryRow(entry)); err != nil {
				return exported, fmt.Errorf("write row %d: %w", exported+2, err)
			}
			exported++
		}

		if len(entries) < e.pageSize {
			break
		}
		filter.Offset += len(entries)
	}

	if err := sw.Flush(); err != nil {
		return exported, fmt.Errorf("flush workbook: %w", err)
	}
	if err := f.Write(w); err != nil {
		return exported, fmt.Errorf("write workbook: %w", err)
	}
	return exported, nil
}

func entryRow(entry domain.ChangeLogEntry) []any {
	return []any{
		entry.ID.String(),
		entry.ReferenceType,
		entry.ReferenceName,
		entry.WorkflowName,
		entry.Action,
		entry.ChangedField,
		formatValue(entry.OldValue),
		formatValue(entry.NewValue),
		entry.ChangedBy,
		entry.ChangedOn.UTC().Format(time.RFC3339),
	}
}

func formatValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
