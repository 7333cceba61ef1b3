package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/pyq-archive/internal/domain"
)

// AuthSessionRepository implements domain.AuthSessionRepository using SQLite.
type AuthSessionRepository struct {
	db *sql.DB
}

// NewAuthSessionRepository creates a new SQLite-backed AuthSessionRepository.
func NewAuthSessionRepository(db *DB) *AuthSessionRepository {
	return &AuthSessionRepository{db: db.SqlDB}
}

func (r *AuthSessionRepository) Create(ctx context.Context, s *domain.AuthSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, account_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.AccountID, formatTime(s.CreatedAt), formatTime(s.ExpiresAt),
	)
	if err != nil {
		return storeError("insert auth session", err)
	}
	return nil
}

func (r *AuthSessionRepository) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	var (
		s                    domain.AuthSession
		createdAt, expiresAt string
		signedOutAt          sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, created_at, expires_at, signed_out_at FROM auth_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.AccountID, &createdAt, &expiresAt, &signedOutAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeError("query auth session", err)
	}

	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeError("parse session created_at", err)
	}
	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, storeError("parse session expires_at", err)
	}
	if signedOutAt.Valid {
		t, err := parseTime(signedOutAt.String)
		if err != nil {
			return nil, storeError("parse session signed_out_at", err)
		}
		s.SignedOutAt = &t
	}
	return &s, nil
}

// MarkSignedOut stamps the session as signed out. Signing out an already
// signed-out session keeps the first timestamp.
func (r *AuthSessionRepository) MarkSignedOut(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET signed_out_at = COALESCE(signed_out_at, ?) WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return storeError("sign out auth session", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeError("rows affected", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
