package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
)

type stubValidator struct {
	principal *domain.Principal
	err       error
	seen      []string
}

func (s *stubValidator) Validate(raw string) (*domain.Principal, error) {
	s.seen = append(s.seen, raw)
	if s.err != nil {
		return nil, s.err
	}
	return s.principal, nil
}

func runAuth(t *testing.T, v TokenValidator, header string) (called bool, got *domain.Principal, err error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	err = Auth(v)(func(c echo.Context) error {
		called = true
		got = domain.PrincipalFrom(c.Request().Context())
		return nil
	})(c)
	return called, got, err
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	p := &domain.Principal{Subject: "alice", Roles: []domain.Role{domain.RoleClient}}
	v := &stubValidator{principal: p}

	called, got, err := runAuth(t, v, "Bearer tok-123")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if got != p {
		t.Fatalf("principal not attached to request context")
	}
	if len(v.seen) != 1 || v.seen[0] != "tok-123" {
		t.Fatalf("unexpected token passed to validator: %v", v.seen)
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	v := &stubValidator{principal: &domain.Principal{Subject: "alice"}}

	if _, got, err := runAuth(t, v, "bearer tok-123"); err != nil || got == nil {
		t.Fatalf("expected lower-case scheme to authenticate, got %v", err)
	}
}

func TestAuthMiddleware_AnonymousWithoutBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "basic scheme", header: "Basic YWxpY2U6cHcx"},
		{name: "token scheme", header: "Token abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubValidator{err: domain.ErrTokenMalformed}
			called, got, err := runAuth(t, v, tt.header)
			if err != nil {
				t.Fatalf("anonymous request should pass the gate, got %v", err)
			}
			if !called || got != nil {
				t.Fatalf("expected anonymous pass-through")
			}
			if len(v.seen) != 0 {
				t.Fatalf("validator must not run without a bearer token")
			}
		})
	}
}

func TestAuthMiddleware_RejectsInvalidToken(t *testing.T) {
	for _, tokenErr := range []error{domain.ErrTokenExpired, domain.ErrInvalidSignature, domain.ErrTokenMalformed} {
		t.Run(tokenErr.Error(), func(t *testing.T) {
			called, _, err := runAuth(t, &stubValidator{err: tokenErr}, "Bearer not-a-token")
			if called {
				t.Fatalf("should not reach next")
			}
			if !errors.Is(err, tokenErr) || !errors.Is(err, domain.ErrAuthToken) {
				t.Fatalf("expected %v, got %v", tokenErr, err)
			}
		})
	}
}

func TestAuthMiddleware_EmptyBearerIsValidated(t *testing.T) {
	v := &stubValidator{err: domain.ErrTokenMalformed}
	called, _, err := runAuth(t, v, "Bearer ")
	if called {
		t.Fatalf("should not reach next")
	}
	if !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected malformed token error, got %v", err)
	}
	if len(v.seen) != 1 || v.seen[0] != "" {
		t.Fatalf("expected empty token to be validated, got %v", v.seen)
	}
}
