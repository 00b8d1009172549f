// Package storage persists the domain model in SQLite.
//
// The Repository owns the *sql.DB; all reads and writes go through Queries,
// which runs either on the pooled connection or inside an explicit
// transaction obtained via WithTx. Handlers and services never touch a
// global database handle.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db      *sql.DB
	queries *Queries
}

// Open opens (creating if needed) the SQLite database at dbPath and runs
// pending migrations.
func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// The pragma must ride on the DSN: database/sql pools connections, and a
	// plain Exec would enable foreign keys on only one of them.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database connection is still usable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Queries returns the non-transactional query set.
func (r *Repository) Queries() *Queries {
	return r.queries
}

// WithTx runs fn inside a single transaction. Any error rolls everything
// back, so a failed series or transfer mutation leaves no partial state.
func (r *Repository) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsConstraintErr reports whether err is a SQLite constraint violation
// (unique name collision, restricted delete, CHECK failure).
func IsConstraintErr(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		// Primary result code 19 = SQLITE_CONSTRAINT; extended codes keep
		// it in the low byte.
		return serr.Code()&0xff == 19
	}
	return false
}
