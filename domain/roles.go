package domain

import "strings"

// Role is the role of an actor inside a tenant.
type Role string

const (
	RoleOwner   Role = "Owner"
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleViewer  Role = "Viewer"
)

var roleLevels = map[Role]int{
	RoleOwner:   4,
	RoleAdmin:   3,
	RoleManager: 2,
	RoleViewer:  1,
}

// Level returns the position of the role in the hierarchy. Unknown roles are 0.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsKnown reports whether r is one of the defined roles.
func (r Role) IsKnown() bool {
	return r.Level() > 0
}

// Satisfies reports whether r grants at least the permissions of required.
// An unknown role never satisfies anything.
func (r Role) Satisfies(required Role) bool {
	if !r.IsKnown() {
		return false
	}
	return r.Level() >= required.Level()
}

// ParseRole resolves a role name case-insensitively. Unrecognized names yield
// an unknown role with no permissions.
func ParseRole(s string) Role {
	for role := range roleLevels {
		if strings.EqualFold(string(role), strings.TrimSpace(s)) {
			return role
		}
	}
	return Role(s)
}
