package handler

import (
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

func toSignupInput(req signupRequest) ports.SignupInput {
	return ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	}
}

func toUserResponse(p domain.Profile) userResponse {
	roles := p.Roles
	if roles == nil {
		roles = []domain.Role{}
	}
	return userResponse{
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
		Roles:    roles,
	}
}
