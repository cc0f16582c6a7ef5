package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer to UserService.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// UserService defines the account use cases exposed over HTTP.
type UserService interface {
	// Signup returns the created username. caller is nil for anonymous requests.
	Signup(ctx context.Context, caller *domain.Principal, in SignupInput) (string, error)
	Signin(ctx context.Context, username, password string) (domain.Token, error)
	Delete(ctx context.Context, username string) error
	Search(ctx context.Context, username string) (domain.Profile, error)
	WhoAmI(ctx context.Context, principal *domain.Principal) (domain.Profile, error)
	Refresh(ctx context.Context, principal *domain.Principal) (domain.Token, error)
}
