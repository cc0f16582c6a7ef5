package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to status codes, logs unexpected errors without leaking them, and
// renders {"error": "<message>"}. tokenErrorStatus is used for every
// expired, tampered or malformed bearer token.
func NewHTTPErrorHandler(log zerolog.Logger, tokenErrorStatus int) echo.HTTPErrorHandler {
	if tokenErrorStatus == 0 {
		tokenErrorStatus = http.StatusInternalServerError
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, tokenErrorStatus, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, tokenErrorStatus int, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnknownSubject):
		return http.StatusNotFound, "the user doesn't exist"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusUnprocessableEntity, "username is already in use"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity, "invalid username/password supplied"
	case errors.Is(err, domain.ErrAuthToken):
		log.Debug().Str("reason", domain.TokenErrorReason(err)).Str("path", c.Path()).Msg("bearer token rejected")
		return tokenErrorStatus, "expired or invalid JWT token"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "something went wrong"
}
