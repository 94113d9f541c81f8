package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator applies embedded schema migrations. Migrations are plain SQL
// files named NNNN_name.sql; a file with a _sqlite.sql suffix overrides
// the plain variant when running on SQLite.
type Migrator struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

// NewMigrator creates a migrator for the given connection and driver.
func NewMigrator(db *sql.DB, driver string) *Migrator {
	return &Migrator{db: db, driver: driver}
}

// Up applies all pending migrations in order.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := m.listMigrations()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("read current version: %w", err)
	}

	for _, name := range migrations {
		if name <= current {
			continue
		}
		if err := m.apply(ctx, name); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

func (m *Migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	var query string
	switch m.driver {
	case "sqlite", "":
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				version TEXT UNIQUE NOT NULL,
				applied_at TIMESTAMP NOT NULL
			)
		`
	default:
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id SERIAL PRIMARY KEY,
				version TEXT UNIQUE NOT NULL,
				applied_at TIMESTAMP NOT NULL
			)
		`
	}
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// listMigrations returns migration file names applicable to the driver,
// sorted by version prefix.
func (m *Migrator) listMigrations() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	sqliteVariants := make(map[string]string)
	plain := make(map[string]string)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.HasSuffix(name, "_sqlite.sql") {
			sqliteVariants[strings.TrimSuffix(name, "_sqlite.sql")] = name
		} else {
			plain[strings.TrimSuffix(name, ".sql")] = name
		}
	}

	bases := make(map[string]bool)
	for base := range sqliteVariants {
		bases[base] = true
	}
	for base := range plain {
		bases[base] = true
	}

	var migrations []string
	for base := range bases {
		if m.driver == "sqlite" {
			if name, ok := sqliteVariants[base]; ok {
				migrations = append(migrations, name)
				continue
			}
		}
		if name, ok := plain[base]; ok {
			migrations = append(migrations, name)
		}
	}

	sort.Strings(migrations)
	return migrations, nil
}

func (m *Migrator) currentVersion(ctx context.Context) (string, error) {
	var version string
	err := m.db.QueryRowContext(ctx,
		"SELECT version FROM schema_migrations ORDER BY id DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return version, err
}

func (m *Migrator) apply(ctx context.Context, name string) error {
	data, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, applied_at)
		VALUES ($1, $2)
		ON CONFLICT (version) DO NOTHING
	`, name, time.Now().UTC())
	return err
}
