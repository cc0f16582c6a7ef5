package policy

import (
	"net/http"
	"strings"

	"github.com/99minutos/account-service/internal/core/domain"
)

// Table maps a route key ("GET /users/:username") to its requirement.
type Table map[string]Expression

// Key builds the lookup key for method and route pattern.
func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Lookup returns the expression registered for the route. Unknown routes
// resolve to DenyAll.
func (t Table) Lookup(method, path string) Expression {
	if e, ok := t[Key(method, path)]; ok {
		return e
	}
	return DenyAll
}

// Authorize evaluates the route's requirement for principal.
func (t Table) Authorize(method, path string, principal *domain.Principal) Decision {
	return Evaluate(t.Lookup(method, path), principal)
}

// UserRoutes is the access policy for the /users API.
func UserRoutes() Table {
	anyUser := MustParse("hasRole('ROLE_ADMIN') or hasRole('ROLE_CLIENT')")
	adminOnly := MustParse("hasRole('ROLE_ADMIN')")

	return Table{
		Key(http.MethodPost, "/users/signin"):      PermitAll,
		Key(http.MethodPost, "/users/signup"):      PermitAll,
		Key(http.MethodDelete, "/users/:username"): adminOnly,
		Key(http.MethodGet, "/users/:username"):    adminOnly,
		Key(http.MethodGet, "/users/me"):           anyUser,
		Key(http.MethodGet, "/users/refresh"):      anyUser,
	}
}
