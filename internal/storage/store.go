// Package storage provides database access, schema migrations and
// repositories for Lectern's relational state.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lectern-ai/lectern/internal/config"
)

// Open connects to the configured database, verifies the connection and
// applies any pending migrations.
func Open(ctx context.Context, cfg *config.StorageConfig) (*sql.DB, error) {
	var driverName, dsn string
	switch cfg.Driver {
	case "sqlite":
		driverName = "sqlite3"
		dsn = cfg.SQLite.Path
	case "postgres":
		driverName = "postgres"
		dsn = cfg.Postgres.DSN
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite serializes writers; a single connection avoids
		// SQLITE_BUSY under concurrent tasks.
		db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := NewMigrator(db, cfg.Driver).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}
