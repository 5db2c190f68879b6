package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage provides SQLite database access for services, payments,
// transactions and categories. It implements the Repository interface.
type Storage struct {
	db     *sql.DB
	q      queryer
	inTx   bool
	logger *slog.Logger
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at dbPath and applies
// pending migrations.
//
// Writers take the database lock when their transaction begins and wait up
// to the busy timeout for it, so concurrent requests queue instead of
// failing with SQLITE_BUSY.
func NewStorage(dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}

	// Run all pending migrations
	if err := runMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	// A single connection serialises writers; reads inside a transaction
	// must go through the transaction's Repository.
	db.SetMaxOpenConns(1)

	return &Storage{db: db, q: db, logger: logger}, nil
}

func dsn(dbPath string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + params
	}
	return dbPath + "?" + params
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn inside a database transaction. Nested calls join the
// enclosing transaction.
func (s *Storage) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &Storage{db: s.db, q: tx, inTx: true, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

// expectOneRow returns ErrNotFound when an UPDATE or DELETE matched nothing.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
