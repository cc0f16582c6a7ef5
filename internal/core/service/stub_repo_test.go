package service

import (
	"context"
	"sync"

	"github.com/99minutos/account-service/internal/core/domain"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	findErr error
	saveErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]domain.Role(nil), u.Roles...)
	return &clone
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, exists := r.users[user.Username]; exists {
		return domain.ErrUsernameTaken
	}
	r.users[user.Username] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) DeleteByUsername(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, username)
	return nil
}

func (r *stubUserRepo) count(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; ok {
		return 1
	}
	return 0
}
