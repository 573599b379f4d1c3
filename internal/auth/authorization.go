package auth

import "github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/domain"

// HasRole reports whether roles contains role.
func HasRole(roles domain.RoleSet, role domain.RoleName) bool {
	return roles.Has(role)
}

// HasAnyRole reports whether roles contains at least one of allowed.
func HasAnyRole(roles domain.RoleSet, allowed ...domain.RoleName) bool {
	for _, role := range allowed {
		if roles.Has(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether roles grants administrator access.
func IsAdmin(roles domain.RoleSet) bool {
	return HasRole(roles, domain.RoleAdmin)
}
