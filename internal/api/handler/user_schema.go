package handler

import "github.com/99minutos/account-service/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// signinRequest is read from the query string or a form body.
type signinRequest struct {
	Username string `json:"username" form:"username" query:"username" validate:"required,max=255"`
	Password string `json:"password" form:"password" query:"password" validate:"required,max=72"`
}

type signupRequest struct {
	Username string   `json:"username" validate:"required,max=255"`
	Email    string   `json:"email"    validate:"omitempty,email,max=255"`
	Password string   `json:"password" validate:"required,max=72"`
	Roles    []string `json:"roles"    validate:"required,min=1,dive,required"`
}

// userResponse is the public projection of an account.
type userResponse struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Roles    []domain.Role `json:"roles"`
}
