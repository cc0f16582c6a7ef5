package domain

import (
	"fmt"
	"strings"
)

// Role is a coarse-grained permission tag. The set is closed.
type Role string

const (
	RoleAdmin  Role = "ROLE_ADMIN"
	RoleClient Role = "ROLE_CLIENT"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleClient}
}

// IsValid reports whether r is one of the predefined roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleClient:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole accepts the wire name ("ROLE_ADMIN") or the short form ("admin").
func ParseRole(s string) (Role, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(v, "ROLE_") {
		v = "ROLE_" + v
	}
	r := Role(v)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
	return r, nil
}

// ParseRoles parses every entry and removes duplicates, keeping order.
func ParseRoles(in []string) ([]Role, error) {
	out := make([]Role, 0, len(in))
	for _, s := range in {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		if !containsRole(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RoleStrings converts roles to their wire names.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
