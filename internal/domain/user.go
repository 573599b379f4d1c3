package domain

import "time"

// User is the identity record owned by the auth core.
type User struct {
	ID           string
	Email        string
	Name         *string
	PasswordHash string
	Roles        RoleSet
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the optional name or an empty string.
func (u *User) DisplayName() string {
	if u == nil || u.Name == nil {
		return ""
	}
	return *u.Name
}
