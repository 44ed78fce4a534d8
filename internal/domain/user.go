// Package domain contains the core business entities for TeamLedger.
// These are plain Go values representing the concepts of the ledger:
// users, teams, categories, items and the sessions that authenticate users.
package domain

import (
	"time"
)

// Role is the closed set of user roles. There is no runtime registration
// of new roles; the permission table in the authz package is keyed by it.
type Role string

const (
	// RoleAdmin can manage users in addition to everything RoleUser can do.
	RoleAdmin Role = "admin"

	// RoleUser is the default role for registered users.
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	// StatusInitial is the state of a freshly registered account.
	// Initial accounts cannot perform protected operations yet.
	StatusInitial UserStatus = "initial"

	// StatusActive is the only state allowed through the authorization gate.
	StatusActive UserStatus = "active"

	// StatusDisabled marks a deactivated account. Disabled accounts are
	// rejected uniformly, regardless of role.
	StatusDisabled UserStatus = "disabled"
)

// User represents a registered user in the system.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name"`

	// Email is the unique email address used for login.
	Email string `json:"email"`

	// Role determines the static permission set granted to the user.
	Role Role `json:"role"`

	// Status gates every protected operation; only active users pass.
	Status UserStatus `json:"status"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never exposed in API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default role and status.
func NewUser(firstName, lastName, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Status:       StatusInitial,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive reports whether the account may perform protected operations.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserPatch is a partial update for a User. Nil fields keep their prior
// values. Applying a patch produces a new value; the original is untouched.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *Role
	Status    *UserStatus
}

// Apply merges the patch onto u and returns the updated copy.
func (p UserPatch) Apply(u User) User {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	u.UpdatedAt = time.Now().UTC()
	return u
}

// Principal is the authenticated actor attached to one operation.
// It is resolved once from persisted user state at authentication time
// and is immutable for the duration of the operation.
type Principal struct {
	// UserID identifies the authenticated user.
	UserID int64

	// Role is the user's role at authentication time.
	Role Role

	// Status is the user's account status at authentication time.
	Status UserStatus

	// TeamIDs holds the ids of every team the user is a member of.
	TeamIDs []int64
}

// IsActive reports whether the principal's account is active.
func (p *Principal) IsActive() bool {
	return p.Status == StatusActive
}

// MemberOf reports whether the principal belongs to the given team.
func (p *Principal) MemberOf(teamID int64) bool {
	for _, id := range p.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}
