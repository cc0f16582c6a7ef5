package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	"github.com/99minutos/account-service/internal/infrastructure/db/memory"
	"github.com/99minutos/account-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/account-service/internal/infrastructure/db/mysql"
	"github.com/99minutos/account-service/internal/infrastructure/db/postgres"
	"github.com/99minutos/account-service/internal/infrastructure/db/redis"
	"github.com/99minutos/account-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/account-service/pkg/logger"
)

// store is the credential store selected by STORE_DRIVER, optionally
// fronted by the Redis cache.
type store struct {
	repo      ports.UserRepository
	readiness map[string]handlers.Pinger
	closers   []func()
}

func (s *store) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	st := &store{readiness: make(map[string]handlers.Pinger)}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Store.PostgresDSN})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		repo := postgres.NewUserRepository(pool)
		st.repo, st.readiness["postgres"] = repo, repo

	case config.DriverMySQL:
		db, err := mysql.Open(ctx, mysql.Config{DSN: cfg.Store.MySQLDSN})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = db.Close() })
		repo := mysql.NewUserRepository(db)
		st.repo, st.readiness["mysql"] = repo, repo

	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Store.MongoURI, Database: cfg.Store.MongoDB})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Disconnect(context.Background()) })
		repo := mongo.NewUserRepository(db)
		st.repo, st.readiness["mongodb"] = repo, repo

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; accounts are lost on restart")
		repo := memory.NewUserRepository()
		st.repo, st.readiness["memory"] = repo, repo

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Redis.CacheEnabled {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		cached := redis.NewCachedUserRepository(st.repo, client, cfg.Redis.CacheTTL, log)
		st.repo, st.readiness["redis"] = cached, cached
	}

	log.Info().Str("driver", cfg.Store.Driver).Bool("cache", cfg.Redis.CacheEnabled).Msg("credential store ready")
	return st, nil
}

// migrateStore brings the selected store's schema up to date.
func migrateStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return postgres.Migrate(cfg.Store.PostgresDSN, log)
	case config.DriverMySQL:
		return mysql.Migrate(cfg.Store.MySQLDSN, log)
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Store.MongoURI, Database: cfg.Store.MongoDB})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		log.Info().Msg("mongo indexes ensured")
		return nil
	default:
		return nil
	}
}

func initLogger(cfg *config.Config) zerolog.Logger {
	return logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
}
