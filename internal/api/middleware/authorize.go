package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/policy"
)

// Authorize enforces table for the matched route pattern. It must run after
// Auth. Routes absent from the table are denied.
func Authorize(table policy.Table, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method, route := c.Request().Method, c.Path()
			p := domain.PrincipalFrom(c.Request().Context())

			decision := table.Authorize(method, route, p)
			metrics.AccessDecisionsTotal.WithLabelValues(policy.Key(method, route), decision.String()).Inc()

			if decision == policy.Deny {
				ev := log.Debug().Str("method", method).Str("route", route).
					Str("requirement", table.Lookup(method, route).String())
				if p != nil {
					ev = ev.Str("subject", p.Subject)
				}
				ev.Msg("access denied")
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
