// Package authz implements the static role→permission model and the
// authorization gate that guards every protected operation. The package is
// pure: all checks are synchronous predicates over already-loaded principal
// and team state, with no I/O of its own.
package authz

import (
	"github.com/prn-tf/teamledger/internal/domain"
)

// Permission is an atomic capability tag. Permissions are never combined
// at runtime beyond set membership.
type Permission string

const (
	ReadUser      Permission = "user:read"
	WriteUser     Permission = "user:write"
	ReadTeam      Permission = "team:read"
	WriteTeam     Permission = "team:write"
	ReadCategory  Permission = "category:read"
	WriteCategory Permission = "category:write"
	ReadItem      Permission = "item:read"
	WriteItem     Permission = "item:write"
)

// commonPermissions is the set granted to every role. WriteUser is the one
// capability reserved for admins, so Admin ⊇ User holds by construction.
var commonPermissions = []Permission{
	ReadUser,
	ReadTeam,
	WriteTeam,
	ReadCategory,
	WriteCategory,
	ReadItem,
	WriteItem,
}

// rolePermissions is fixed at process start and read-only afterwards.
var rolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: append(append([]Permission{}, commonPermissions...), WriteUser),
	domain.RoleUser:  commonPermissions,
}

// PermissionsFor returns the permission set granted to a role. It is total
// over the closed role set; unknown roles hold no permissions.
func PermissionsFor(role domain.Role) []Permission {
	return rolePermissions[role]
}

// HasPermissions reports whether the role's grant covers every required
// permission.
func HasPermissions(role domain.Role, required []Permission) bool {
	granted := rolePermissions[role]
	for _, need := range required {
		found := false
		for _, have := range granted {
			if have == need {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
