package workflow

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/metrics"
	"github.com/rpattn/fieldgate/internal/repository"
	"github.com/rpattn/fieldgate/internal/schema/validator"
)

// Service manages workflow definitions and their tracked field declarations.
type Service struct {
	definitions repository.WorkflowDefinitionRepository
}

func NewService(definitions repository.WorkflowDefinitionRepository) *Service {
	return &Service{definitions: definitions}
}

// Validate checks def against schemas without saving it. Labels and types of
// resolvable tracked fields are filled in either way.
func (s *Service) Validate(ctx context.Context, schemas validator.SchemaSource, def *domain.WorkflowDefinition) error {
	if err := validator.ValidateDefinition(ctx, schemas, def); err != nil {
		return err
	}
	if !def.FieldLevelWorkflowEnabled {
		for _, failure := range validator.PopulateMetadata(ctx, schemas, def) {
			metrics.ObserveMetadataFailure(failure.Schema)
			log.WithError(failure).WithField("workflow", def.Name).Warn("tracked field metadata unavailable")
		}
	}
	return nil
}

// Save validates and persists def. Saving an active definition deactivates
// any other active definition for the same document type.
func (s *Service) Save(ctx context.Context, schemas validator.SchemaSource, def domain.WorkflowDefinition) (domain.WorkflowDefinition, error) {
	if def.Name == "" {
		return domain.WorkflowDefinition{}, errors.New("workflow name is required")
	}
	if err := s.Validate(ctx, schemas, &def); err != nil {
		return domain.WorkflowDefinition{}, err
	}

	saved, err := s.definitions.Save(ctx, def)
	if err != nil {
		return domain.WorkflowDefinition{}, errors.Wrapf(err, "saving workflow %s", def.Name)
	}

	log.WithFields(log.Fields{
		"workflow":       saved.Name,
		"document_type":  saved.DocumentType,
		"active":         saved.IsActive,
		"tracked_fields": len(saved.TrackedFields),
	}).Info("saved workflow definition")
	return saved, nil
}

// Active returns the active definition for documentType.
func (s *Service) Active(ctx context.Context, documentType string) (domain.WorkflowDefinition, error) {
	active, err := s.definitions.GetActiveByDocumentTypes(ctx, []string{documentType})
	if err != nil {
		return domain.WorkflowDefinition{}, errors.Wrapf(err, "loading active workflow for %s", documentType)
	}
	def, ok := active[documentType]
	if !ok {
		return domain.WorkflowDefinition{}, errors.Wrapf(domain.ErrNotFound, "no active workflow for %s", documentType)
	}
	return def, nil
}

// List returns every stored definition.
func (s *Service) List(ctx context.Context) ([]domain.WorkflowDefinition, error) {
	return s.definitions.List(ctx)
}
