package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/pyq-archive/internal/domain"
)

// AccountRepository implements domain.AccountRepository using SQLite.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new SQLite-backed AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db.SqlDB}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, display_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, account.Email, account.DisplayName, account.PasswordHash, formatTime(now),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		return storeError("insert account", err)
	}

	account.ID = id
	account.CreatedAt = now
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, "id", id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, "email", email)
}

func (r *AccountRepository) UpdateDisplayName(ctx context.Context, id, name string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE accounts SET display_name = ? WHERE id = ?", name, id)
	if err != nil {
		return storeError("update display name", err)
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

func (r *AccountRepository) getOne(ctx context.Context, column, value string) (*domain.Account, error) {
	var (
		a         domain.Account
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, email, display_name, password_hash, created_at FROM accounts WHERE %s = ?`, column),
		value,
	).Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeError("query account by "+column, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storeError("parse account created_at", err)
	}
	return &a, nil
}
