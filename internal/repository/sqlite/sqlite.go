package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// timeLayout is the ISO-8601 form used for every stored timestamp. It is
// fixed width, so lexical order in SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// DB wraps the SQLite connection and hands out the repositories built on it.
type DB struct {
	SqlDB *sql.DB
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Ping checks that the database still answers.
func (d *DB) Ping(ctx context.Context) error {
	return d.SqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

func (d *DB) Users() *UserRepository               { return NewUserRepository(d) }
func (d *DB) Pyqs() *PyqRepository                 { return NewPyqRepository(d) }
func (d *DB) Accounts() *AccountRepository         { return NewAccountRepository(d) }
func (d *DB) AuthSessions() *AuthSessionRepository { return NewAuthSessionRepository(d) }

// Blobs returns the BLOB-table backed blob store. publicBase prefixes the
// retrieval URLs it hands out.
func (d *DB) Blobs(publicBase string) *BlobStore { return NewBlobStore(d, publicBase) }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by CURRENT_TIMESTAMP defaults.
		return time.Parse(time.DateTime, s)
	}
	return t, nil
}

// storeError tags a driver error as a record store failure.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRecordStore, op, err)
}

// isUniqueConstraintError checks if the error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && !errors.Is(err, sql.ErrNoRows) &&
		(strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "unique constraint"))
}
