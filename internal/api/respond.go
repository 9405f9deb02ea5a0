package api

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/rpattn/fieldgate/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// requestError marks request content the handlers reject before reaching
// the domain layer.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func invalid(msg string) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: msg}
}

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func classify(err error) (int, string) {
	var (
		immutable  *domain.ImmutabilityViolation
		unknown    *domain.UnknownFieldError
		missing    *domain.MissingTrackedFieldsError
		addressing *domain.InvalidTrackedFieldError
		definition *domain.DefinitionError
		request    *requestError
	)
	switch {
	case errors.As(err, &immutable):
		return http.StatusConflict, "immutability_violation"
	case errors.As(err, &unknown):
		return http.StatusUnprocessableEntity, "unknown_field"
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, "missing_tracked_fields"
	case errors.As(err, &addressing):
		return http.StatusUnprocessableEntity, "invalid_tracked_field"
	case errors.As(err, &definition):
		return http.StatusUnprocessableEntity, "invalid_definition"
	case errors.As(err, &request):
		return request.status, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, ""
	}
}

func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return badRequest("invalid payload: " + err.Error())
	}
	return nil
}
