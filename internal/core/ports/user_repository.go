package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// UserRepository is the credential store. Implementations must enforce
// username uniqueness themselves so a race between ExistsByUsername and
// Save still ends with a single record.
type UserRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// FindByUsername returns domain.ErrUserNotFound when no record matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Save inserts a new record, returning domain.ErrUsernameTaken on a
	// uniqueness violation.
	Save(ctx context.Context, user *domain.User) error
	// DeleteByUsername returns domain.ErrUserNotFound when nothing was deleted.
	DeleteByUsername(ctx context.Context, username string) error
}
