package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var embedded embed.FS

var ErrNoDatabase = errors.New("migration_database_required")

// Status is the schema state after Up.
type Status struct {
	Version uint
	Dirty   bool
	Changed bool
}

func source() (fs.FS, error) {
	return fs.Sub(embedded, "migrations")
}

// Up applies pending postgres migrations. The shared *sql.DB stays open.
func Up(db *sql.DB) (Status, error) {
	if db == nil {
		return Status{}, ErrNoDatabase
	}
	files, err := source()
	if err != nil {
		return Status{}, fmt.Errorf("open migrations: %w", err)
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return Status{}, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "talentgate_schema_migrations"})
	if err != nil {
		return Status{}, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return Status{}, fmt.Errorf("migrator: %w", err)
	}

	status := Status{Changed: true}
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return Status{}, fmt.Errorf("apply migrations: %w", err)
		}
		status.Changed = false
	}
	status.Version, status.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return status, fmt.Errorf("read migration version: %w", err)
	}
	return status, nil
}

// Files lists the embedded migration file names in apply order.
func Files() ([]string, error) {
	files, err := source()
	if err != nil {
		return nil, err
	}
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
