package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the pending ledger migrations. An up-to-date schema is not
// an error.
func Migrate(ctx context.Context, db *DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	var (
		driver   database.Driver
		closable bool
	)
	switch db.Dialect {
	case DialectPostgres:
		// A separate *sql.DB over the shared pool; closing it leaves the pool open.
		conn := stdlib.OpenDBFromPool(db.pool)
		if driver, err = pgxmigrate.WithInstance(conn, &pgxmigrate.Config{}); err != nil {
			_ = conn.Close()
		}
		closable = true
	default:
		// The sqlite driver closes the *sql.DB it wraps, which would drop a
		// :memory: database, so it is never closed here.
		driver, err = sqlitemigrate.WithInstance(db.SQL, &sqlitemigrate.Config{})
	}
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(db.Dialect), driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if closable {
		defer func() {
			_, _ = m.Close()
		}()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return ctx.Err()
}

// SchemaVersion reports the applied migration version and whether the last
// migration failed halfway.
func SchemaVersion(ctx context.Context, db *DB) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := db.SQL.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		return 0, false, fmt.Errorf("schema version: %w", err)
	}
	return version, dirty, nil
}
