package ports

import (
	"context"
	"time"

	"github.com/99minutos/account-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenService issues and validates stateless access tokens.
type TokenService interface {
	Issue(subject string, roles []domain.Role) (domain.Token, error)
	Validate(raw string) (*domain.Principal, error)
	// Refresh reissues a token for subject with its current roles. The new
	// expiry is strictly later than prior.
	Refresh(ctx context.Context, subject string, prior time.Time) (domain.Token, error)
}
