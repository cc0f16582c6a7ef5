package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// UserHandler serves the /users API. Access rules live in the policy table
// applied by middleware.Authorize, not here.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Signin authenticates a user and returns a bearer token.
//
// @Summary      Sign in
// @Tags         users
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        username  query     string  true  "Username"
// @Param        password  query     string  true  "Password"
// @Success      200       {string}  string  "JWT"
// @Failure      400       {object}  errorResponse
// @Failure      422       {object}  errorResponse  "Invalid username/password supplied"
// @Router       /users/signin [post]
func (h *UserHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" {
		req.Username = c.QueryParam("username")
	}
	if req.Password == "" {
		req.Password = c.QueryParam("password")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	token, err := h.service.Signin(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.SigninsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.SigninsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.SigninsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("signin").Inc()
	return c.String(http.StatusOK, token.Value)
}

// Signup creates an account and echoes its username. Requesting ROLE_ADMIN
// requires an admin bearer token unless open admin signup is enabled.
//
// @Summary      Sign up
// @Tags         users
// @Accept       json
// @Produce      plain
// @Param        body  body      signupRequest  true  "Signup user"
// @Success      200   {string}  string         "username"
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse  "Access denied"
// @Failure      422   {object}  errorResponse  "Username is already in use"
// @Router       /users/signup [post]
func (h *UserHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	username, err := h.service.Signup(c.Request().Context(), principal(c), toSignupInput(req))
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(signupResult(err)).Inc()
		return err
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	return c.String(http.StatusOK, username)
}

// Delete removes an account.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      plain
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {string}  string  "username"
// @Failure      403       {object}  errorResponse  "Access denied"
// @Failure      404       {object}  errorResponse  "The user doesn't exist"
// @Failure      500       {object}  errorResponse  "Expired or invalid JWT token"
// @Router       /users/{username} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	username := c.Param("username")
	if err := h.service.Delete(c.Request().Context(), username); err != nil {
		return err
	}
	return c.String(http.StatusOK, username)
}

// Search returns an account by username.
//
// @Summary      Search a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  userResponse
// @Failure      403       {object}  errorResponse  "Access denied"
// @Failure      404       {object}  errorResponse  "The user doesn't exist"
// @Failure      500       {object}  errorResponse  "Expired or invalid JWT token"
// @Router       /users/{username} [get]
func (h *UserHandler) Search(c echo.Context) error {
	profile, err := h.service.Search(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(profile))
}

// WhoAmI returns the caller's own account.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      403  {object}  errorResponse  "Access denied"
// @Failure      404  {object}  errorResponse  "The user doesn't exist"
// @Failure      500  {object}  errorResponse  "Expired or invalid JWT token"
// @Router       /users/me [get]
func (h *UserHandler) WhoAmI(c echo.Context) error {
	profile, err := h.service.WhoAmI(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(profile))
}

// Refresh issues a new token for the caller with their current roles.
//
// @Summary      Refresh token
// @Tags         users
// @Produce      plain
// @Security     BearerAuth
// @Success      200  {string}  string  "JWT"
// @Failure      403  {object}  errorResponse  "Access denied"
// @Failure      404  {object}  errorResponse  "The user doesn't exist"
// @Failure      500  {object}  errorResponse  "Expired or invalid JWT token"
// @Router       /users/refresh [get]
func (h *UserHandler) Refresh(c echo.Context) error {
	token, err := h.service.Refresh(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.String(http.StatusOK, token.Value)
}

func signupResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		return "taken"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
