package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/infrastructure/db/memory"
)

func TestUserCodec(t *testing.T) {
	u := &domain.User{
		ID:           "id-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Roles:        []domain.Role{domain.RoleClient},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := encodeUser(u)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"password_hash"`)

	got, err := decodeUser(raw)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = decodeUser([]byte("{"))
	assert.Error(t, err)
	_, err = decodeUser([]byte("{}"))
	assert.Error(t, err)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "account:user:alice", cacheKey("alice"))
}

func setupRedis(t *testing.T) string {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestCachedUserRepository(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()

	client, err := Connect(ctx, Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	inner := memory.NewUserRepository()
	repo := NewCachedUserRepository(inner, client, time.Minute, zerolog.Nop())
	require.NoError(t, repo.Ping(ctx))

	u := &domain.User{ID: "1", Username: "alice", PasswordHash: "h", Roles: []domain.Role{domain.RoleClient}}
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)

	raw, err := client.Get(ctx, cacheKey("alice")).Bytes()
	require.NoError(t, err)
	assert.Equal(t, tombstone, raw, "a fresh write keeps the entry tombstoned")

	require.NoError(t, repo.DeleteByUsername(ctx, "alice"))
	_, err = repo.FindByUsername(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.Save(ctx, u))
	assert.ErrorIs(t, repo.Save(ctx, u), domain.ErrUsernameTaken)
}
