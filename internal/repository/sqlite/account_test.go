package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/repository/sqlite"
)

func TestAccountRepository_CreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewAccountRepository(db)
	ctx := context.Background()

	a := &domain.Account{Email: "a@example.com", PasswordHash: "hash"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected account ID to be assigned")
	}

	byEmail, err := repo.GetByEmail(ctx, "A@example.com")
	if err != nil {
		t.Fatalf("GetByEmail (case-insensitive): %v", err)
	}
	if byEmail.ID != a.ID {
		t.Fatalf("expected id %s, got %s", a.ID, byEmail.ID)
	}

	if err := repo.UpdateDisplayName(ctx, a.ID, "Asha"); err != nil {
		t.Fatalf("UpdateDisplayName: %v", err)
	}
	byID, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.DisplayName != "Asha" {
		t.Fatalf("expected display name Asha, got %q", byID.DisplayName)
	}
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewAccountRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.Account{Email: "dup@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := repo.Create(ctx, &domain.Account{Email: "dup@example.com", PasswordHash: "h"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAccountRepository_UpdateDisplayName_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewAccountRepository(db)

	err := repo.UpdateDisplayName(context.Background(), "missing", "x")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthSessionRepository_SignOut(t *testing.T) {
	db := newTestDB(t)
	accounts := sqlite.NewAccountRepository(db)
	sessions := sqlite.NewAuthSessionRepository(db)
	ctx := context.Background()

	a := &domain.Account{Email: "s@example.com", PasswordHash: "h"}
	if err := accounts.Create(ctx, a); err != nil {
		t.Fatalf("Create account: %v", err)
	}

	now := time.Now().UTC()
	s := &domain.AuthSession{AccountID: a.ID, ExpiresAt: now.Add(time.Hour)}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	got, err := sessions.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Active(now) {
		t.Fatal("expected new session to be active")
	}

	if err := sessions.MarkSignedOut(ctx, s.ID, now); err != nil {
		t.Fatalf("MarkSignedOut: %v", err)
	}
	got, err = sessions.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID after sign out: %v", err)
	}
	if got.Active(now) {
		t.Fatal("expected signed-out session to be inactive")
	}
}
