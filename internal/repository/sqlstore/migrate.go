package sqlstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	mpostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The schema ships inside the binary, one directory per dialect.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending up migration. Already being at the latest
// version is not an error.
func (s *Store) MigrateUp() error {
	return s.runMigration(func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown rolls back the given number of migrations (all of them when
// steps <= 0).
func (s *Store) MigrateDown(steps int) error {
	return s.runMigration(func(m *migrate.Migrate) error {
		if steps <= 0 {
			return m.Down()
		}
		return m.Steps(-steps)
	})
}

// MigrationVersion reports the current schema version. A database that has
// never been migrated reports version 0.
func (s *Store) MigrationVersion() (version uint, dirty bool, err error) {
	err = s.runMigration(func(m *migrate.Migrate) error {
		var vErr error
		version, dirty, vErr = m.Version()
		if errors.Is(vErr, migrate.ErrNilVersion) {
			version, dirty = 0, false
			return nil
		}
		return vErr
	})
	return version, dirty, err
}

func (s *Store) runMigration(fn func(m *migrate.Migrate) error) error {
	m, release, err := s.migrator()
	if err != nil {
		return err
	}
	defer release()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlstore: migration failed: %w", err)
	}
	return nil
}

// migrator builds a golang-migrate instance for the store's dialect.
//
// The migrate database drivers close the *sql.DB they were given when the
// migrator is closed. Postgres therefore gets its own short-lived pool;
// SQLite must reuse the store's pool (an in-memory database exists only on
// that connection), so its migrator is simply dropped instead of closed.
func (s *Store) migrator() (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: loading embedded migrations: %w", err)
	}

	switch s.driver {
	case DriverPostgres:
		conn, err := sql.Open(DriverPostgres, s.dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: opening migration connection: %w", err)
		}
		drv, err := mpostgres.WithInstance(conn, &mpostgres.Config{})
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("sqlstore: preparing postgres migrations: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
		if err != nil {
			drv.Close()
			return nil, nil, fmt.Errorf("sqlstore: creating migrator: %w", err)
		}
		return m, func() { _, _ = m.Close() }, nil

	default:
		drv, err := msqlite.WithInstance(s.conn, &msqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: preparing sqlite migrations: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlstore: creating migrator: %w", err)
		}
		return m, func() { _ = src.Close() }, nil
	}
}
