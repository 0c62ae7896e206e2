package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/office-portal/internal/dashboard"
	"github.com/wolfman30/office-portal/internal/officeapi"
	"github.com/wolfman30/office-portal/internal/phone"
	"github.com/wolfman30/office-portal/internal/session"
	"github.com/wolfman30/office-portal/internal/validation"
	"github.com/wolfman30/office-portal/pkg/logging"
)

// statusFor maps the portal error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var apiErr *officeapi.APIError
	switch {
	case errors.Is(err, validation.ErrValidation),
		errors.Is(err, phone.ErrInvalidPhone),
		errors.Is(err, dashboard.ErrInvalidRange),
		errors.Is(err, dashboard.ErrNotSelectable),
		errors.Is(err, dashboard.ErrNothingSelected):
		return http.StatusBadRequest
	case errors.Is(err, officeapi.ErrUnauthenticated),
		errors.Is(err, officeapi.ErrUnauthorized),
		errors.Is(err, session.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrLoginFailed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("portal request failed", "error", err)
		message = "internal error"
	}
	writeJSONError(w, status, message)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
