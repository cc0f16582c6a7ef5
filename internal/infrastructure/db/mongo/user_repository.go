package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/account-service/internal/core/domain"
)

const usersCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           string   `bson:"_id"`
	Username     string   `bson:"username"`
	Email        string   `bson:"email,omitempty"`
	PasswordHash string   `bson:"password_hash"`
	Roles        []string `bson:"roles"`
	CreatedAt    int64    `bson:"created_at"`
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, fmt.Errorf("count user: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	doc := mongoUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Roles:        domain.RoleStrings(user.Roles),
		CreatedAt:    user.CreatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) DeleteByUsername(ctx context.Context, username string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"username": username})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Ping reports whether the primary is reachable. Used by the readiness probe.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (mu mongoUser) toDomain() *domain.User {
	roles := make([]domain.Role, 0, len(mu.Roles))
	for _, s := range mu.Roles {
		roles = append(roles, domain.Role(s))
	}
	return &domain.User{
		ID:           mu.ID,
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Roles:        roles,
		CreatedAt:    unixToTime(mu.CreatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
