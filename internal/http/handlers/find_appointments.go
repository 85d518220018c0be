package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
	"github.com/clinicdesk-ai/clinicdesk/internal/scheduling"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

// AppointmentFinder is the engine surface the handler needs. Implemented by
// *scheduling.Service.
type AppointmentFinder interface {
	FindAppointments(ctx context.Context, criteria scheduling.Criteria) (*scheduling.Result, error)
}

// FindAppointmentsHandler exposes the scheduling engine as a tool endpoint.
type FindAppointmentsHandler struct {
	finder AppointmentFinder
	logger *logging.Logger
}

func NewFindAppointmentsHandler(finder AppointmentFinder, logger *logging.Logger) *FindAppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FindAppointmentsHandler{finder: finder, logger: logger}
}

// Handle runs one appointment search. Resolution outcomes (no match,
// ambiguous, empty) are 200s carrying a message; only transport and backend
// failures map to error statuses.
func (h *FindAppointmentsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var criteria scheduling.Criteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.finder.FindAppointments(r.Context(), criteria)
	if err != nil {
		status, message := classifyError(err)
		h.logger.Error("appointment search failed", "status", status, "error", err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// classifyError maps engine failures to HTTP statuses. Upstream EMR failures
// are gateway errors, not this service's fault.
func classifyError(err error) (int, string) {
	var timeoutErr *openemr.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, "the EMR did not respond in time"
	}
	var authErr *openemr.AuthError
	if errors.As(err, &authErr) {
		return http.StatusBadGateway, "could not authenticate with the EMR"
	}
	var apiErr *openemr.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, "the EMR rejected the request"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
