// Package service provides business logic services for TeamLedger.
package service

import "errors"

// Common service errors.
var (
	// Validation errors
	ErrInvalidPassword = errors.New("invalid password: must be at least 8 characters")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidName     = errors.New("invalid name: must be 1-255 characters")

	// Export errors
	ErrExportDisabled = errors.New("item export is not enabled")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
