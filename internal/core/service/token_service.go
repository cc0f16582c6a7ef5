package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const defaultTokenTTL = time.Hour

// tokenClaims is the JWT payload. The HS256 signature covers every field.
type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues, validates and refreshes HS256 access tokens.
type TokenService struct {
	users  ports.UserRepository
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
	log    zerolog.Logger
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithIssuer sets the "iss" claim written and required by the service.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) { s.issuer = issuer }
}

func NewTokenService(users ports.UserRepository, secret string, ttl time.Duration, log zerolog.Logger, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	s := &TokenService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)
	return s
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject carrying a snapshot of roles.
func (s *TokenService) Issue(subject string, roles []domain.Role) (domain.Token, error) {
	now := s.now().UTC()
	return s.sign(subject, roles, now, now.Add(s.ttl))
}

// Validate checks the signature, then expiry, then claim structure.
func (s *TokenService) Validate(raw string) (*domain.Principal, error) {
	var claims tokenClaims
	if _, err := s.parser.ParseWithClaims(raw, &claims, s.key); err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrTokenMalformed
	}
	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role := domain.Role(r)
		if !role.IsValid() {
			return nil, domain.ErrTokenMalformed
		}
		roles = append(roles, role)
	}

	p := &domain.Principal{
		Subject:   claims.Subject,
		Roles:     roles,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return p, nil
}

// Refresh looks up the subject's current roles and issues a new token whose
// expiry is strictly after prior.
func (s *TokenService) Refresh(ctx context.Context, subject string, prior time.Time) (domain.Token, error) {
	user, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Token{}, domain.ErrUnknownSubject
		}
		return domain.Token{}, fmt.Errorf("refresh token: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)
	// NumericDate has second precision; a refresh in the same second as the
	// original issue would otherwise produce an equal expiry.
	if floor := prior.UTC().Truncate(time.Second); !exp.After(floor) {
		exp = floor.Add(time.Second)
	}
	return s.sign(user.Username, user.Roles, now, exp)
}

func (s *TokenService) sign(subject string, roles []domain.Role, iat, exp time.Time) (domain.Token, error) {
	if subject == "" {
		return domain.Token{}, fmt.Errorf("%w: token subject is required", domain.ErrValidation)
	}

	claims := tokenClaims{
		Roles: domain.RoleStrings(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign token: %w", err)
	}

	s.log.Debug().Str("subject", subject).Time("expires_at", claims.ExpiresAt.Time).Msg("token issued")

	return domain.Token{
		Value:     signed,
		Subject:   subject,
		Roles:     append([]domain.Role(nil), roles...),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *TokenService) key(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return s.secret, nil
}

// classifyTokenError maps jwt parser failures onto the domain taxonomy. The
// parser verifies the signature before it validates claims, so a forged
// token never reports Expired.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return domain.ErrTokenMalformed
	}
}
