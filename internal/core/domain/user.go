package domain

import "time"

// User models an account held by the credential store.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole reports whether the account was granted role.
func (u *User) HasRole(role Role) bool {
	return containsRole(u.Roles, role)
}

// Profile is the public projection of a User. It never carries the hash.
type Profile struct {
	ID       string
	Username string
	Email    string
	Roles    []Role
}

// Profile projects u for callers outside the core.
func (u *User) Profile() Profile {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    roles,
	}
}
