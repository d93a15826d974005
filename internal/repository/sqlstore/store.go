// Package sqlstore implements the repository interfaces on database/sql.
//
// Two backends share the same queries:
//   - SQLite via modernc.org/sqlite (pure Go, no CGo): the default, and what
//     the tests use with ":memory:"
//   - PostgreSQL via github.com/lib/pq
//
// Queries are written with `?` placeholders and rebound to `$1, $2, ...`
// for Postgres. Both engines support `RETURNING`, which lets inserts and
// updates hand back the row in one round trip.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB:  a connection pool (NOT a single connection!)
//   - sql.Tx:  a transaction, pinned to one connection until Commit/Rollback
//   - sql.Row: a single result row; Scan returns sql.ErrNoRows when empty
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Each driver registers itself with database/sql in its init() function:
	// "sqlite" from modernc.org/sqlite and "postgres" from lib/pq. Their
	// error types are also used below to detect constraint violations.
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

// Options selects the backend. DSN is a file path (or ":memory:") for
// SQLite and a postgres:// URL for Postgres.
type Options struct {
	Driver string
	DSN    string
}

// Store is the SQL-backed implementation of repository.UserRepository,
// repository.ProfileRepository and repository.CourseRepository.
type Store struct {
	conn   *sql.DB
	driver string
	dsn    string
}

// Open creates the connection pool and verifies it with a ping.
// It does not touch the schema; call MigrateUp for that.
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection; it just creates a pool
// manager. PingContext forces the first real connection so a bad path or
// credentials fail here instead of on the first request.
func Open(ctx context.Context, opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows one writer at a time, and every ":memory:" connection
		// is a separate database. A single pooled connection covers both.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetConnMaxIdleTime(defaultConnMaxIdle)
		conn.SetConnMaxLifetime(defaultConnMaxLife)
		conn.SetMaxIdleConns(defaultMaxIdleConns)
		conn.SetMaxOpenConns(defaultMaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// PRAGMA STATEMENTS:
		// WAL lets readers proceed while a write is in progress. Foreign keys
		// are OFF by default in SQLite; the profile → user reference needs them.
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}
	}

	return &Store{conn: conn, driver: driver, dsn: opts.DSN}, nil
}

// OpenSQLite is shorthand for Open with the SQLite driver.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	return Open(ctx, Options{Driver: DriverSQLite, DSN: path})
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Driver reports which backend the store talks to.
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites `?` placeholders into the dialect's form.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on every other path, including panics.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err == nil {
				err = fmt.Errorf("sqlstore: rolling back: %w", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	committed = true
	return nil
}

// isUniqueViolation recognises UNIQUE / PRIMARY KEY violations from either
// driver, so a race that slips past an existence check still surfaces as
// a conflict.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
