package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
)

// ContextKeySubject is the echo context key holding the authenticated
// username, read by the request logger.
const ContextKeySubject = "subject"

// TokenValidator turns a raw bearer token into a principal.
type TokenValidator interface {
	Validate(raw string) (*domain.Principal, error)
}

// Auth extracts a bearer token, validates it and attaches the principal to
// the request context. Requests without a bearer token continue anonymously
// and are left to Authorize. A presented token that fails validation ends
// the request with the token error.
func Auth(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, present := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !present {
				return next(c)
			}

			p, err := tokens.Validate(raw)
			if err != nil {
				metrics.TokenValidationFailuresTotal.WithLabelValues(domain.TokenErrorReason(err)).Inc()
				return err
			}

			req := c.Request()
			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), p)))
			c.Set(ContextKeySubject, p.Subject)
			return next(c)
		}
	}
}

// bearerToken reports whether header uses the Bearer scheme and returns the
// token. "Bearer" with nothing after it counts as present so that it fails
// validation instead of silently downgrading to anonymous.
func bearerToken(header string) (string, bool) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
