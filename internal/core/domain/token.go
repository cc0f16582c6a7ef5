package domain

import (
	"context"
	"time"
)

// Token is a signed, self-contained credential. It is never stored.
type Token struct {
	Value     string
	Subject   string
	Roles     []Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the authenticated identity derived from a valid token. It
// lives for a single request.
type Principal struct {
	Subject   string
	Roles     []Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the principal was granted role. A nil principal
// holds no roles.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	return containsRole(p.Roles, role)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the auth middleware, or
// nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
