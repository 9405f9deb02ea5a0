package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/rpattn/fieldgate/internal/domain"
)

func changeLogFilter(r *http.Request) (domain.ChangeLogFilter, error) {
	q := r.URL.Query()
	filter := domain.ChangeLogFilter{
		ReferenceType: q.Get("reference_type"),
		ReferenceName: q.Get("reference_name"),
		WorkflowName:  q.Get("workflow"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, badRequest("invalid limit")
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, badRequest("invalid offset")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func entryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid change log id")
	}
	return id, nil
}

func (s *Server) handleListChangeLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := changeLogFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.deps.ChangeLogs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetChangeLog(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.deps.ChangeLogs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleUpdateChangeLog always ends in 404 or 409: entries are write-once.
func (s *Server) handleUpdateChangeLog(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var entry domain.ChangeLogEntry
	if err := decodeBody(r, &entry); err != nil {
		writeError(w, err)
		return
	}
	entry.ID = id

	if err := s.deps.ChangeLogs.Update(r.Context(), entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteChangeLog(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.ChangeLogs.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportChangeLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := changeLogFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	count, err := s.deps.Exporter.WriteWorkbook(r.Context(), &buf, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	fileName := "change-log-" + time.Now().UTC().Format("20060102T150405Z") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.WithError(err).Warn("failed to stream change log export")
		return
	}
	log.WithField("rows", count).Info("exported change log")
}
