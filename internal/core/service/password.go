package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/core/domain"
)

// BcryptHasher implements ports.PasswordHasher. Each hash embeds its own
// random salt and cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to
// bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password exceeds 72 bytes", domain.ErrValidation)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify compares in constant time. A malformed hash is a mismatch.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
