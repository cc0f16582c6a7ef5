// Package memory is an in-process credential store for development and
// tests. Records are deep-copied on the way in and out.
package memory

import (
	"context"
	"sync"

	"github.com/99minutos/account-service/internal/core/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return domain.ErrUsernameTaken
	}
	r.users[user.Username] = cloneUser(user)
	return nil
}

func (r *UserRepository) DeleteByUsername(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, username)
	return nil
}

// Len returns the number of stored accounts.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Ping always succeeds; it satisfies the readiness checker.
func (r *UserRepository) Ping(context.Context) error { return nil }

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]domain.Role(nil), u.Roles...)
	return &c
}
