// Package mysql is the MySQL credential store.
package mysql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultTimeout = 5 * time.Second

// Config holds the connection settings. DSN uses the go-sql-driver format,
// e.g. "user:pass@tcp(localhost:3306)/accounts".
type Config struct {
	DSN          string
	MaxOpenConns int
	Timeout      time.Duration
}

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// Migrate applies every pending up migration.
func Migrate(dsn string, log zerolog.Logger) error {
	normalized, err := normalizeDSN(dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("mysql migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, "mysql://"+normalized)
	if err != nil {
		return fmt.Errorf("mysql migrations init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("mysql migrations up: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("mysql migrations applied")
	return nil
}

// normalizeDSN forces the options the repository depends on: DATETIME
// columns scan into time.Time in UTC.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}
