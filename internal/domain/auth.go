package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RoleName is one of the closed role vocabulary.
type RoleName string

const (
	RoleUser    RoleName = "USER"
	RoleCompany RoleName = "COMPANY"
	RoleAdmin   RoleName = "ADMIN"
)

// KnownRoles lists every assignable role.
var KnownRoles = []RoleName{RoleUser, RoleCompany, RoleAdmin}

// ParseRoleName normalizes and validates a role name.
func ParseRoleName(raw string) (RoleName, error) {
	name := RoleName(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range KnownRoles {
		if name == known {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownRole, raw)
}

// RoleSet is the unordered, deduplicated set of roles held by a user.
type RoleSet map[RoleName]struct{}

// NewRoleSet builds a set from the given names.
func NewRoleSet(names ...RoleName) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role RoleName) bool {
	_, ok := s[role]
	return ok
}

// Add inserts role, keeping the set deduplicated.
func (s RoleSet) Add(role RoleName) {
	s[role] = struct{}{}
}

// Names returns the roles sorted for stable output.
func (s RoleSet) Names() []RoleName {
	names := make([]RoleName, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
