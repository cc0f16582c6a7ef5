package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/policy"
	"github.com/99minutos/account-service/internal/core/ports"
)

// UserService implements signup, signin and account lookups on top of the
// credential store, password hasher and token service.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenService
	log    zerolog.Logger

	// adminSignup gates creation of accounts holding ROLE_ADMIN.
	adminSignup policy.Expression

	dummyOnce sync.Once
	dummyHash string
}

// UserOption customises a UserService.
type UserOption func(*UserService)

// WithOpenAdminSignup lets anonymous callers create ROLE_ADMIN accounts.
func WithOpenAdminSignup(open bool) UserOption {
	return func(s *UserService) {
		if open {
			s.adminSignup = policy.PermitAll
		}
	}
}

func NewUserService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	log zerolog.Logger,
	opts ...UserOption,
) *UserService {
	s := &UserService{
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		log:         log,
		adminSignup: policy.HasAnyRole(domain.RoleAdmin),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an account and returns its username.
func (s *UserService) Signup(ctx context.Context, caller *domain.Principal, in ports.SignupInput) (string, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return "", fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}
	roles, err := domain.ParseRoles(in.Roles)
	if err != nil {
		return "", err
	}
	if len(roles) == 0 {
		return "", fmt.Errorf("%w: at least one role is required", domain.ErrValidation)
	}

	for _, r := range roles {
		if r == domain.RoleAdmin && policy.Evaluate(s.adminSignup, caller) == policy.Deny {
			return "", domain.ErrForbidden
		}
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("signup: %w", err)
	}
	if exists {
		return "", domain.ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    time.Now().UTC(),
	}
	// The store's unique constraint settles a race with a concurrent signup.
	if err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return "", err
		}
		return "", fmt.Errorf("signup: %w", err)
	}

	s.log.Info().Str("username", username).Strs("roles", domain.RoleStrings(roles)).Msg("user signed up")
	return username, nil
}

// Signin verifies credentials and issues a token with the stored roles.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Signin(ctx context.Context, username, password string) (domain.Token, error) {
	if username == "" || password == "" {
		return domain.Token{}, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.burnHash(password)
			return domain.Token{}, domain.ErrInvalidCredentials
		}
		return domain.Token{}, fmt.Errorf("signin: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Debug().Str("username", username).Msg("signin rejected")
		return domain.Token{}, domain.ErrInvalidCredentials
	}

	return s.tokens.Issue(user.Username, user.Roles)
}

func (s *UserService) Delete(ctx context.Context, username string) error {
	if err := s.repo.DeleteByUsername(ctx, username); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("username", username).Msg("user deleted")
	return nil
}

func (s *UserService) Search(ctx context.Context, username string) (domain.Profile, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Profile{}, err
		}
		return domain.Profile{}, fmt.Errorf("search user: %w", err)
	}
	return user.Profile(), nil
}

// WhoAmI returns the caller's own profile. A token that outlived its account
// yields domain.ErrUserNotFound.
func (s *UserService) WhoAmI(ctx context.Context, principal *domain.Principal) (domain.Profile, error) {
	if principal == nil {
		return domain.Profile{}, domain.ErrForbidden
	}
	return s.Search(ctx, principal.Subject)
}

func (s *UserService) Refresh(ctx context.Context, principal *domain.Principal) (domain.Token, error) {
	if principal == nil {
		return domain.Token{}, domain.ErrForbidden
	}
	return s.tokens.Refresh(ctx, principal.Subject, principal.ExpiresAt)
}

// EnsureAdmin creates a bootstrap ROLE_ADMIN account when username is free.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if exists {
		return false, nil
	}

	internal := &domain.Principal{Subject: "bootstrap", Roles: []domain.Role{domain.RoleAdmin}}
	_, err = s.Signup(ctx, internal, ports.SignupInput{
		Username: username,
		Email:    email,
		Password: password,
		Roles:    []string{string(domain.RoleAdmin)},
	})
	if errors.Is(err, domain.ErrUsernameTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// burnHash spends roughly one verification worth of time so a missing user
// does not answer faster than a wrong password.
func (s *UserService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("account-service-timing-guard")
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_ = s.hasher.Verify(password, s.dummyHash)
	}
}
