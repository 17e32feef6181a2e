package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/Tamilarasan-gessdemn/green-backend/internal/services"
)

// envelope is the JSON response shape for every API endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handlers) respondJSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := envelope{
		Success: status < 400,
		Message: message,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// respondError maps a service error onto an HTTP status. Validation and
// upstream-rejection errors carry their own message through to the caller;
// anything unrecognized is logged in full and reported generically.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.loggerFromContext(r.Context()).Error("request failed", "error", err, "path", r.URL.Path)
		message = "internal server error"
	}
	h.respondJSON(w, r, status, message, nil)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, services.ErrCartNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrItemNotInCart),
		errors.Is(err, services.ErrCartEmpty),
		errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound

	case errors.Is(err, services.ErrMissingField),
		errors.Is(err, services.ErrInvalidPin),
		errors.Is(err, services.ErrNoValidItems),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrShipmentBookingFailed),
		errors.Is(err, services.ErrCarrierCancelFailed),
		errors.Is(err, services.ErrNotCancellable),
		errors.Is(err, services.ErrSignatureInvalid),
		errors.Is(err, services.ErrAmountMismatch):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
