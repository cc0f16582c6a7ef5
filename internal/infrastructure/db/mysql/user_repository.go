package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/99minutos/account-service/internal/core/domain"
)

const errDuplicateEntry = 1062

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)", username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists user: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		u     domain.User
		roles string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, roles, created_at FROM users WHERE username = ? LIMIT 1",
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Roles = splitRoles(roles)
	return &u, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, roles, created_at) VALUES (?,?,?,?,?,?)",
		user.ID, user.Username, user.Email, user.PasswordHash, joinRoles(user.Roles), user.CreatedAt,
	)
	if err != nil {
		var myErr *mysqldrv.MySQLError
		if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) DeleteByUsername(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Roles are stored as a comma-separated list.
func joinRoles(roles []domain.Role) string {
	return strings.Join(domain.RoleStrings(roles), ",")
}

func splitRoles(s string) []domain.Role {
	if s == "" {
		return []domain.Role{}
	}
	parts := strings.Split(s, ",")
	out := make([]domain.Role, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, domain.Role(p))
		}
	}
	return out
}
