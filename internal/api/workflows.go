package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rpattn/fieldgate/internal/domain"
)

type workflowPayload struct {
	DocumentType              string                    `json:"document_type"`
	IsActive                  *bool                     `json:"is_active"`
	FieldLevelWorkflowEnabled *bool                     `json:"enable_field_level_workflow"`
	TrackedFields             []domain.TrackedFieldSpec `json:"tracked_fields"`
	Name                      string                    `json:"name,omitempty"`
}

func (p workflowPayload) definition(name string) (domain.WorkflowDefinition, error) {
	if strings.TrimSpace(name) == "" {
		return domain.WorkflowDefinition{}, invalid("workflow name is required")
	}
	if strings.TrimSpace(p.DocumentType) == "" {
		return domain.WorkflowDefinition{}, invalid("document_type is required")
	}
	def := domain.NewWorkflowDefinition(name, p.DocumentType, p.TrackedFields)
	if p.IsActive != nil {
		def.IsActive = *p.IsActive
	}
	if p.FieldLevelWorkflowEnabled != nil {
		def.FieldLevelWorkflowEnabled = *p.FieldLevelWorkflowEnabled
	}
	return def, nil
}

func (s *Server) handleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	var payload workflowPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	def, err := payload.definition(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.deps.Workflows.Save(r.Context(), s.operation(r), def)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	var payload workflowPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	def, err := payload.definition(payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.deps.Gate.ValidateDefinition(r.Context(), s.operation(r), &def); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleActiveWorkflow(w http.ResponseWriter, r *http.Request) {
	def, err := s.deps.Workflows.Active(r.Context(), chi.URLParam(r, "documentType"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	defs, err := s.deps.Workflows.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}
