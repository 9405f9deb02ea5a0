package api

import (
	"net/http"
	"strings"

	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/gate"
)

type hookPayload struct {
	Document domain.Document          `json:"document"`
	Before   *domain.DocumentSnapshot `json:"before"`
	Action   string                   `json:"action"`
	Message  string                   `json:"message"`
}

type evaluateResponse struct {
	Evaluation gate.Evaluation `json:"evaluation"`
}

type transitionResponse struct {
	Evaluation   gate.Evaluation       `json:"evaluation"`
	Result       gate.TransitionResult `json:"result"`
	Notices      []gate.Notice         `json:"notices"`
	Notification string                `json:"notification,omitempty"`
}

func (p hookPayload) check(requireAction bool) error {
	if strings.TrimSpace(p.Document.DocumentType) == "" {
		return invalid("document.document_type is required")
	}
	if strings.TrimSpace(p.Document.Name) == "" {
		return invalid("document.name is required")
	}
	if requireAction && strings.TrimSpace(p.Action) == "" {
		return invalid("action is required")
	}
	return nil
}

// handleEvaluate runs the before-save stage only. Nothing is logged.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var payload hookPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := payload.check(false); err != nil {
		writeError(w, err)
		return
	}

	eval, err := s.deps.Gate.OnBeforeSave(r.Context(), s.operation(r), payload.Document, payload.Before)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Evaluation: eval})
}

// handleTransition runs before-save and before-transition within one
// operation, the way the host calls them for a single workflow action.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var payload hookPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if err := payload.check(true); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	op := s.operation(r)
	eval, err := s.deps.Gate.OnBeforeSave(ctx, op, payload.Document, payload.Before)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.deps.Gate.OnBeforeTransition(ctx, op, payload.Document, payload.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := transitionResponse{
		Evaluation: eval,
		Result:     result,
		Notices:    op.Notices(),
	}
	if payload.Message != "" {
		resp.Notification = gate.AugmentNotification(payload.Message, result.Changes)
	}
	writeJSON(w, http.StatusOK, resp)
}
