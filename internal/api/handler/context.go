package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
)

// principal returns the identity attached by the Auth middleware. Routes
// gated by the policy table never see nil here; a nil result means the
// route was mounted without the gate, which the service rejects.
func principal(c echo.Context) *domain.Principal {
	return domain.PrincipalFrom(c.Request().Context())
}
