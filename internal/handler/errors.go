package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/orderconfig"
	"github.com/homedeliver/api/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, orderconfig.ErrUnknownServiceType) ||
		errors.Is(err, service.ErrClientNameRequired) ||
		errors.Is(err, service.ErrInvalidServiceType) ||
		errors.Is(err, service.ErrNegativeAmount) ||
		errors.Is(err, service.ErrEmptyProof) ||
		errors.Is(err, service.ErrInvalidBillingStatus) ||
		errors.Is(err, service.ErrNoMigrationData) ||
		errors.Is(err, service.ErrInvalidDay)
}

// writeServiceError maps a service error to a status code. Anything
// unrecognised is logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errIsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrVendorMismatch):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrProofStorageDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrBillingTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// parseIDParam reads a uuid URL parameter, answering 400 when it is malformed.
func parseIDParam(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
