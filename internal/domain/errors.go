package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).
// The HTTP layer maps them onto status codes with errors.Is.

var (
	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrUnauthorized indicates no principal is attached to the operation.
	ErrUnauthorized = errors.New("authentication required")

	// ErrAccountInactive indicates the principal's account is not active.
	// This check precedes every other authorization check.
	ErrAccountInactive = errors.New("user account is not active")

	// ErrMissingPermission indicates the principal's role does not grant
	// the permissions the operation requires.
	ErrMissingPermission = errors.New("user has no permission to perform this action")

	// ErrNotTeamMember indicates the principal does not belong to the
	// team the operation targets.
	ErrNotTeamMember = errors.New("user does not belong to this team")

	// ErrNotTeamCreator indicates a creator-gated operation was attempted
	// by a team member other than the team's creator.
	ErrNotTeamCreator = errors.New("only the team creator may perform this action")

	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates a user with the same email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ===========================================
	// Team Errors
	// ===========================================

	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrDuplicateTeamName indicates the creator already has a team with
	// that name.
	ErrDuplicateTeamName = errors.New("a team with that name already exists for this user")

	// ===========================================
	// Category Errors
	// ===========================================

	// ErrCategoryNotFound indicates the referenced category does not
	// exist in the target team.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrDuplicateCategoryName indicates the team already has a category
	// with that name, of either type.
	ErrDuplicateCategoryName = errors.New("category name already exists in this team")

	// ErrCategoryInUse indicates the category still has items referencing
	// it and cannot be deleted.
	ErrCategoryInUse = errors.New("category still has items")

	// ErrInvalidCategoryType indicates the type is neither expense nor income.
	ErrInvalidCategoryType = errors.New("category type must be expense or income")

	// ===========================================
	// Item Errors
	// ===========================================

	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidQuantity indicates a quantity below the minimum of 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrInvalidPrice indicates a negative price.
	ErrInvalidPrice = errors.New("price must not be negative")

	// ===========================================
	// Session Errors
	// ===========================================

	// ErrSessionNotFound indicates the bearer token resolves to no
	// session, or the session has expired.
	ErrSessionNotFound = errors.New("session not found")
)
