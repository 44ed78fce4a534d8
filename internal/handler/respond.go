// Package handler provides the HTTP API for TeamLedger.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/service"
)

// APIError is the wire format of an error response. Code is a stable
// machine-readable identifier; Message is for humans.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// errorMapping binds a sentinel error to its HTTP status and wire code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; the first errors.Is match wins.
var errorMappings = []errorMapping{
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},

	{domain.ErrAccountInactive, http.StatusForbidden, "inactive_account"},
	{domain.ErrMissingPermission, http.StatusForbidden, "missing_permission"},
	{domain.ErrNotTeamMember, http.StatusForbidden, "not_a_team_member"},
	{domain.ErrNotTeamCreator, http.StatusForbidden, "not_team_creator"},

	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrTeamNotFound, http.StatusNotFound, "team_not_found"},
	{domain.ErrCategoryNotFound, http.StatusNotFound, "category_not_found"},
	{domain.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{service.ErrExportDisabled, http.StatusNotFound, "export_disabled"},

	{domain.ErrEmailTaken, http.StatusBadRequest, "email_taken"},
	{domain.ErrDuplicateTeamName, http.StatusBadRequest, "team_name_not_unique"},
	{domain.ErrDuplicateCategoryName, http.StatusBadRequest, "category_name_not_unique"},
	{domain.ErrCategoryInUse, http.StatusBadRequest, "category_in_use"},
	{domain.ErrInvalidCategoryType, http.StatusBadRequest, "invalid_category_type"},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrInvalidPrice, http.StatusBadRequest, "invalid_price"},
	{service.ErrInvalidPassword, http.StatusBadRequest, "invalid_password"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{service.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps a service error onto its HTTP status and stable code.
// Unmapped errors are reported as internal without leaking detail.
func writeError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeJSON(w, m.status, errorResponse{Error: APIError{
				Code:    m.code,
				Message: m.err.Error(),
			}})
			return
		}
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: APIError{
		Code:    "internal_error",
		Message: "internal server error",
	}})
}

// writeBadRequest reports a malformed request payload or parameter.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: APIError{
		Code:    "bad_request",
		Message: message,
	}})
}
