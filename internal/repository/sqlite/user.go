package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

// Create writes the role record for a principal. The id is the principal id
// assigned by the identity gateway and is never generated here.
func (r *UserRepository) Create(ctx context.Context, user *domain.UserRecord) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user record needs a principal id", domain.ErrInvalidInput)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, string(user.Role), formatTime(user.CreatedAt),
	)
	if err != nil {
		return storeError("insert user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.UserRecord, error) {
	var (
		user      domain.UserRecord
		role      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeError("query user by id", err)
	}

	user.Role = domain.ParseRole(role)
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeError("parse user created_at", err)
	}
	return &user, nil
}
