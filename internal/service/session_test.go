package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/identity"
	"github.com/msomdec/pyq-archive/internal/repository/sqlite"
	"github.com/msomdec/pyq-archive/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestGateway(db *sqlite.DB) *identity.Gateway {
	// Use cost 4 for fast tests.
	return identity.NewGateway(db.Accounts(), db.AuthSessions(), testJWTSecret, 4)
}

func newReadySession(t *testing.T, gw domain.IdentityGateway, users domain.UserRepository, token string) *service.SessionContext {
	t.Helper()
	s := service.NewSessionContext(gw, users, token)
	t.Cleanup(s.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return s
}

func TestSessionContext_NoToken(t *testing.T) {
	db := newTestDB(t)
	s := newReadySession(t, newTestGateway(db), db.Users(), "")

	if s.CurrentPrincipal() != nil {
		t.Fatalf("expected no principal, got %+v", s.CurrentPrincipal())
	}
	if s.CurrentRole() != domain.RoleUnknown {
		t.Fatalf("expected unknown role, got %q", s.CurrentRole())
	}
}

func TestSessionContext_SignupThenRestore(t *testing.T) {
	db := newTestDB(t)
	gw := newTestGateway(db)
	ctx := context.Background()

	s := newReadySession(t, gw, db.Users(), "")
	p, err := s.Signup(ctx, "admin@example.com", "secret123", "Dr. Admin", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if s.CurrentRole() != domain.RoleAdmin || s.CurrentPrincipal().ID != p.ID {
		t.Fatalf("unexpected state after signup: %q %+v", s.CurrentRole(), s.CurrentPrincipal())
	}

	user, err := db.Users().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("role record not written: %v", err)
	}
	if user.Name != "Dr. Admin" || user.Role != domain.RoleAdmin {
		t.Fatalf("unexpected role record %+v", user)
	}

	// A later request presenting the token sees the same state.
	restored := newReadySession(t, gw, db.Users(), p.Token)
	if restored.CurrentRole() != domain.RoleAdmin {
		t.Fatalf("expected admin role from token, got %q", restored.CurrentRole())
	}
	if restored.CurrentPrincipal().Name() != "Dr. Admin" {
		t.Fatalf("expected display name, got %q", restored.CurrentPrincipal().Name())
	}
}

func TestSessionContext_SignupErrors(t *testing.T) {
	db := newTestDB(t)
	s := newReadySession(t, newTestGateway(db), db.Users(), "")
	ctx := context.Background()

	if _, err := s.Signup(ctx, "a@example.com", "secret123", "A", domain.RoleStudent); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	_, err := s.Signup(ctx, "a@example.com", "secret123", "A again", domain.RoleStudent)
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Op != "signup" {
		t.Fatalf("expected signup AuthError, got %v", err)
	}
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected the gateway error to be kept, got %v", err)
	}

	if _, err := s.Signup(ctx, "b@example.com", "secret123", "B", domain.RoleUnknown); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing role, got %v", err)
	}
	if _, err := s.Signup(ctx, "c@example.com", "secret123", "  ", domain.RoleStudent); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
}

func TestSessionContext_Login(t *testing.T) {
	db := newTestDB(t)
	gw := newTestGateway(db)
	ctx := context.Background()

	signup := newReadySession(t, gw, db.Users(), "")
	if _, err := signup.Signup(ctx, "stu@example.com", "secret123", "Stu", domain.RoleStudent); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	s := newReadySession(t, gw, db.Users(), "")
	p, err := s.Login(ctx, "stu@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.Name() != "Stu" || s.CurrentRole() != domain.RoleStudent {
		t.Fatalf("unexpected login state %q %q", p.Name(), s.CurrentRole())
	}

	_, err = s.Login(ctx, "stu@example.com", "wrong")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected AuthError wrapping ErrUnauthorized, got %v", err)
	}
}

func TestSessionContext_LoginWithoutRoleRecord(t *testing.T) {
	db := newTestDB(t)
	gw := newTestGateway(db)
	ctx := context.Background()

	if _, err := gw.CreateAccount(ctx, "orphan@example.com", "secret123"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	s := newReadySession(t, gw, db.Users(), "")
	p, err := s.Login(ctx, "orphan@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.CurrentRole() != domain.RoleUnknown {
		t.Fatalf("expected unknown role, got %q", s.CurrentRole())
	}
	if got := service.Guard(p, s.CurrentRole(), domain.RoleUnknown); got.Decision != service.RedirectToLogin {
		t.Fatalf("expected unknown role to be sent to login, got %+v", got)
	}
}

func TestSessionContext_Logout(t *testing.T) {
	db := newTestDB(t)
	gw := newTestGateway(db)
	ctx := context.Background()

	s := newReadySession(t, gw, db.Users(), "")
	p, err := s.Signup(ctx, "bye@example.com", "secret123", "Bye", domain.RoleStudent)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.CurrentPrincipal() != nil || s.CurrentRole() != domain.RoleUnknown {
		t.Fatalf("expected cleared state, got %+v %q", s.CurrentPrincipal(), s.CurrentRole())
	}

	restored := newReadySession(t, gw, db.Users(), p.Token)
	if restored.CurrentPrincipal() != nil {
		t.Fatal("expected signed-out token to resolve to no principal")
	}
}

// stubGateway resolves every token to a fixed principal and can fail sign-out.
type stubGateway struct {
	principal  *domain.Principal
	signOutErr error
	silent     bool
}

func (g *stubGateway) CreateAccount(context.Context, string, string) (*domain.Principal, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGateway) SetDisplayName(context.Context, *domain.Principal, string) error {
	return errors.New("not implemented")
}

func (g *stubGateway) Authenticate(context.Context, string, string) (*domain.Principal, error) {
	return nil, errors.New("not implemented")
}

func (g *stubGateway) SignOut(context.Context, *domain.Principal) error { return g.signOutErr }

func (g *stubGateway) OnAuthStateChange(_ string, fn domain.AuthStateFunc) func() {
	if !g.silent {
		go fn(g.principal)
	}
	return func() {}
}

func TestSessionContext_LogoutClearsStateWhenGatewayFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := &domain.Principal{ID: "p1", Email: "p1@example.com", Token: "t"}
	if err := db.Users().Create(ctx, &domain.UserRecord{ID: "p1", Email: p.Email, Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("Create user: %v", err)
	}

	gw := &stubGateway{principal: p, signOutErr: errors.New("gateway down")}
	s := newReadySession(t, gw, db.Users(), "t")
	if s.CurrentRole() != domain.RoleAdmin {
		t.Fatalf("expected admin before logout, got %q", s.CurrentRole())
	}

	if err := s.Logout(ctx); err == nil {
		t.Fatal("expected sign-out error")
	}
	if s.CurrentPrincipal() != nil || s.CurrentRole() != domain.RoleUnknown {
		t.Fatal("expected local state cleared despite the gateway failure")
	}
}

func TestSessionContext_WaitBlocksUntilFirstState(t *testing.T) {
	db := newTestDB(t)
	s := service.NewSessionContext(&stubGateway{silent: true}, db.Users(), "t")
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Wait to block until the deadline, got %v", err)
	}
	select {
	case <-s.Ready():
		t.Fatal("expected context to stay unready")
	default:
	}
}
