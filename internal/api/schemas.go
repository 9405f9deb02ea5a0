package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rpattn/fieldgate/internal/domain"
)

type schemaPayload struct {
	Description string                   `json:"description"`
	IsChild     bool                     `json:"is_child"`
	Fields      []domain.FieldDefinition `json:"fields"`
}

func (p schemaPayload) schema(name string) (domain.DocumentSchema, error) {
	seen := make(map[string]struct{}, len(p.Fields))
	for i, field := range p.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return domain.DocumentSchema{}, invalid("field #" + strconv.Itoa(i+1) + " has no name")
		}
		if _, dup := seen[field.Name]; dup {
			return domain.DocumentSchema{}, invalid("field " + field.Name + " declared twice")
		}
		seen[field.Name] = struct{}{}
		if field.IsTable() && strings.TrimSpace(field.Options) == "" {
			return domain.DocumentSchema{}, invalid("table field " + field.Name + " must name its child schema in options")
		}
	}
	schema := domain.NewDocumentSchema(name, p.Description, p.Fields)
	schema.IsChild = p.IsChild
	return schema, nil
}

func (s *Server) handlePutSchema(w http.ResponseWriter, r *http.Request) {
	var payload schemaPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	schema, err := payload.schema(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.deps.Schemas.Upsert(r.Context(), schema)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.deps.Schemas.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.deps.Schemas.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas)
}
