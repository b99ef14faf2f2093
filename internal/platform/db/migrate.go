package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending up migration. It returns the resulting schema version.
func Migrate(dsn string) (uint, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("platform/db: open for migrate: %w", err)
	}
	defer conn.Close()

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("platform/db: migrate driver: %w", err)
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("platform/db: migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("platform/db: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("platform/db: migrate up: %w", err)
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("platform/db: migrate version: %w", err)
	}
	return version, nil
}
