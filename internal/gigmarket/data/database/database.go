package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"gig-market/pkg/timeutils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	ConnectionString   string
	RetryAttemptDelays []time.Duration
}

type PgxDatabaseFactory struct {
	cfg Config
}

func NewPgxDatabaseFactory(cfg Config) *PgxDatabaseFactory {
	if len(cfg.RetryAttemptDelays) == 0 {
		cfg.RetryAttemptDelays = []time.Duration{time.Second, 3 * time.Second, 5 * time.Second}
	}
	return &PgxDatabaseFactory{
		cfg: cfg,
	}
}

func (f *PgxDatabaseFactory) Create() (*pgxpool.Pool, error) {
	ctx := context.Background()
	_, err := timeutils.Retry(
		ctx,
		f.cfg.RetryAttemptDelays,
		func(context.Context) (struct{}, error) {
			return struct{}{}, runMigrations(f.cfg.ConnectionString)
		},
		func(_ struct{}, err error) bool { return err != nil },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run DB migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, f.cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create a connection pool: %w", err)
	}
	return pool, nil
}

//go:embed migrations/*.sql
var migrationsDir embed.FS

func runMigrations(dsn string) error {
	d, err := iofs.New(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to return an iofs driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, dsn)
	if err != nil {
		return fmt.Errorf("failed to get a new migrate instance: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations to the DB: %w", err)
		}
	}
	return nil
}
