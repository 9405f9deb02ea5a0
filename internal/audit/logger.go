package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rpattn/fieldgate/internal/auth"
	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/metrics"
	"github.com/rpattn/fieldgate/internal/repository"
)

// Logger persists field changes as write-once change log entries.
type Logger struct {
	store repository.ChangeLogRepository
	clock func() time.Time
}

// NewLogger creates a Logger writing to store. A nil clock means time.Now.
func NewLogger(store repository.ChangeLogRepository, clock func() time.Time) *Logger {
	if clock == nil {
		clock = time.Now
	}
	return &Logger{store: store, clock: clock}
}

// Log writes one entry per change, in order. The first failure stops the
// batch; entries already written are kept and returned alongside the error.
func (l *Logger) Log(ctx context.Context, doc domain.Document, def domain.WorkflowDefinition, action string, changes []domain.FieldChange) ([]domain.ChangeLogEntry, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	actor := auth.ActorOrDefault(ctx)
	at := l.clock()
	logger := log.WithFields(log.Fields{
		"document_type": doc.DocumentType,
		"document":      doc.Name,
		"workflow":      def.Name,
		"action":        action,
	})

	written := make([]domain.ChangeLogEntry, 0, len(changes))
	for _, change := range changes {
		entry, err := domain.NewChangeLogEntry(doc, def.Name, action, change, actor, at)
		if err != nil {
			metrics.ObserveAuditError(def.Name)
			return written, errors.Wrapf(err, "building change log entry for %s", change.Path)
		}

		id, err := l.store.Insert(ctx, entry)
		if err != nil {
			metrics.ObserveAuditError(def.Name)
			logger.WithError(err).WithField("field", change.Path).Error("failed to write change log entry")
			return written, errors.Wrapf(err, "writing change log entry for %s", change.Path)
		}
		entry.ID = id
		written = append(written, entry)
	}

	metrics.AddAuditEntries(def.Name, len(written))
	logger.WithField("entries", len(written)).Debug("recorded tracked field changes")
	return written, nil
}
