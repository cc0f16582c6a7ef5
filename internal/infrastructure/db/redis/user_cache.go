package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	defaultCacheTTL = 5 * time.Minute
	// tombstoneTTL bounds how long a write suppresses caching of a username.
	tombstoneTTL = 30 * time.Second
)

// tombstone marks a username written or deleted recently. It is never a
// valid JSON document, so it cannot be mistaken for a cached record.
var tombstone = []byte("~")

// CachedUserRepository is a read-through cache in front of another
// UserRepository. Lookups hit Redis first; writes go to the inner store and
// then replace the cached entry with a tombstone. Redis failures degrade to
// the inner store.
//
// A lookup only fills the cache inside a WATCH on the key, so a concurrent
// Save or DeleteByUsername aborts the fill instead of resurrecting a stale
// record.
//
// Key format: account:user:<username>
type CachedUserRepository struct {
	inner  ports.UserRepository
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCachedUserRepository(inner ports.UserRepository, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedUserRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedUserRepository{inner: inner, client: client, ttl: ttl, log: log}
}

// cachedUser mirrors domain.User including the password hash, which the
// domain type hides from JSON.
type cachedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExistsByUsername always asks the inner store, which owns uniqueness.
func (r *CachedUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.inner.ExistsByUsername(ctx, username)
}

func (r *CachedUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	key := cacheKey(username)

	var (
		user     *domain.User
		innerErr error
		loaded   bool
	)
	load := func() {
		user, innerErr = r.inner.FindByUsername(ctx, username)
		loaded = true
	}

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil && bytes.Equal(raw, tombstone):
			load()
			return nil
		case err == nil:
			if u, decErr := decodeUser(raw); decErr == nil {
				user, loaded = u, true
				return nil
			}
			r.log.Warn().Str("username", username).Msg("discarding undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			return err
		}

		load()
		// Only cache under the store's own spelling of the name so that
		// a write to that name always reaches the entry.
		if innerErr != nil || user.Username != username {
			return nil
		}
		payload, err := encodeUser(user)
		if err != nil {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		r.log.Debug().Str("username", username).Msg("user cache fill raced a write; skipped")
	default:
		r.log.Warn().Err(err).Str("username", username).Msg("user cache unavailable")
	}

	if !loaded {
		load()
	}
	if innerErr != nil {
		return nil, innerErr
	}
	return user, nil
}

func (r *CachedUserRepository) Save(ctx context.Context, user *domain.User) error {
	if err := r.inner.Save(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.Username)
	return nil
}

func (r *CachedUserRepository) DeleteByUsername(ctx context.Context, username string) error {
	err := r.inner.DeleteByUsername(ctx, username)
	// Invalidate even on ErrUserNotFound so a stale entry cannot outlive the row.
	r.invalidate(ctx, username)
	return err
}

// Ping checks Redis only; the inner store reports its own health.
func (r *CachedUserRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// invalidate overwrites the entry with a tombstone. The write aborts any
// fill currently watching the key, and the tombstone keeps later fills
// out until it expires.
func (r *CachedUserRepository) invalidate(ctx context.Context, username string) {
	if err := r.client.Set(ctx, cacheKey(username), tombstone, tombstoneTTL).Err(); err != nil {
		r.log.Warn().Err(err).Str("username", username).Msg("user cache invalidate failed")
	}
}

func cacheKey(username string) string {
	return "account:user:" + username
}

func encodeUser(u *domain.User) ([]byte, error) {
	return json.Marshal(cachedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        domain.RoleStrings(u.Roles),
		CreatedAt:    u.CreatedAt,
	})
}

func decodeUser(raw []byte) (*domain.User, error) {
	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		return nil, err
	}
	if cu.Username == "" {
		return nil, errors.New("cached user without username")
	}
	roles := make([]domain.Role, 0, len(cu.Roles))
	for _, s := range cu.Roles {
		roles = append(roles, domain.Role(s))
	}
	return &domain.User{
		ID:           cu.ID,
		Username:     cu.Username,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		Roles:        roles,
		CreatedAt:    cu.CreatedAt,
	}, nil
}
