package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/policy"
)

func TestAuthorize(t *testing.T) {
	admin := &domain.Principal{Subject: "root", Roles: []domain.Role{domain.RoleAdmin}}
	client := &domain.Principal{Subject: "alice", Roles: []domain.Role{domain.RoleClient}}

	tests := []struct {
		name      string
		method    string
		route     string
		principal *domain.Principal
		allowed   bool
	}{
		{name: "public signin", method: http.MethodPost, route: "/users/signin", allowed: true},
		{name: "anonymous me", method: http.MethodGet, route: "/users/me", allowed: false},
		{name: "client me", method: http.MethodGet, route: "/users/me", principal: client, allowed: true},
		{name: "client delete", method: http.MethodDelete, route: "/users/:username", principal: client, allowed: false},
		{name: "admin delete", method: http.MethodDelete, route: "/users/:username", principal: admin, allowed: true},
		{name: "admin search", method: http.MethodGet, route: "/users/:username", principal: admin, allowed: true},
		{name: "unlisted route", method: http.MethodPut, route: "/users/:username", principal: admin, allowed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(domain.WithPrincipal(req.Context(), tt.principal))
			}
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(tt.route)

			called := false
			err := Authorize(policy.UserRoutes(), zerolog.Nop())(func(c echo.Context) error {
				called = true
				return nil
			})(c)

			if called != tt.allowed {
				t.Fatalf("expected allowed=%v, next called=%v", tt.allowed, called)
			}
			if !tt.allowed && !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}
