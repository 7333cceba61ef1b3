package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
)

const roleLookupTimeout = 5 * time.Second

// SessionContext exposes the current principal and role of one browser
// session. It follows the gateway's auth state for the session token and
// stays unready until the first notification has been applied.
type SessionContext struct {
	gateway domain.IdentityGateway
	users   domain.UserRepository

	mu          sync.RWMutex
	principal   *domain.Principal
	role        domain.Role
	unsubscribe func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSessionContext creates a SessionContext and subscribes it to the auth
// state of token. An empty token resolves to no principal.
func NewSessionContext(gateway domain.IdentityGateway, users domain.UserRepository, token string) *SessionContext {
	s := &SessionContext{
		gateway: gateway,
		users:   users,
		ready:   make(chan struct{}),
	}
	s.watch(token)
	return s
}

// Ready is closed once the first auth state has been applied.
func (s *SessionContext) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the context is ready or ctx is done.
func (s *SessionContext) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentPrincipal returns the signed-in principal, or nil.
func (s *SessionContext) CurrentPrincipal() *domain.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// CurrentRole returns the role of the signed-in principal.
func (s *SessionContext) CurrentRole() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Signup creates an account, names it and writes its role record.
func (s *SessionContext) Signup(ctx context.Context, email, password, displayName string, role domain.Role) (*domain.Principal, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, &domain.AuthError{Op: "signup", Err: fmt.Errorf("%w: display name is required", domain.ErrInvalidInput)}
	}
	if role != domain.RoleAdmin && role != domain.RoleStudent {
		return nil, &domain.AuthError{Op: "signup", Err: fmt.Errorf("%w: role must be admin or student", domain.ErrInvalidInput)}
	}

	p, err := s.gateway.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, &domain.AuthError{Op: "signup", Err: err}
	}
	if err := s.gateway.SetDisplayName(ctx, p, displayName); err != nil {
		return nil, &domain.AuthError{Op: "signup", Err: err}
	}

	user := &domain.UserRecord{
		ID:    p.ID,
		Name:  displayName,
		Email: p.Email,
		Role:  role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, &domain.AuthError{Op: "signup", Err: err}
	}

	s.watch(p.Token)
	s.set(p, role)
	return p, nil
}

// Login authenticates and loads the principal's role. A missing role record
// leaves the role unknown.
func (s *SessionContext) Login(ctx context.Context, email, password string) (*domain.Principal, error) {
	p, err := s.gateway.Authenticate(ctx, email, password)
	if err != nil {
		return nil, &domain.AuthError{Op: "login", Err: err}
	}

	role, err := s.lookupRole(ctx, p)
	if err != nil {
		return nil, &domain.AuthError{Op: "login", Err: err}
	}

	s.watch(p.Token)
	s.set(p, role)
	return p, nil
}

// Logout clears the local state first, then signs out with the gateway.
func (s *SessionContext) Logout(ctx context.Context) error {
	s.Close()

	s.mu.Lock()
	p := s.principal
	s.principal = nil
	s.role = domain.RoleUnknown
	s.mu.Unlock()
	s.markReady()

	if p == nil {
		return nil
	}
	if err := s.gateway.SignOut(ctx, p); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Close unsubscribes from the gateway.
func (s *SessionContext) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// watch replaces the current subscription with one for token. Once it
// returns, the previous subscription delivers nothing more.
func (s *SessionContext) watch(token string) {
	unsubscribe := s.gateway.OnAuthStateChange(token, s.onAuthState)

	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (s *SessionContext) onAuthState(p *domain.Principal) {
	if p == nil {
		s.set(nil, domain.RoleUnknown)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), roleLookupTimeout)
	defer cancel()

	role, err := s.lookupRole(ctx, p)
	if err != nil {
		slog.Error("load role record", "principal", p.ID, "error", err)
	}
	s.set(p, role)
}

func (s *SessionContext) lookupRole(ctx context.Context, p *domain.Principal) (domain.Role, error) {
	user, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("no role record for principal", "principal", p.ID)
			return domain.RoleUnknown, nil
		}
		return domain.RoleUnknown, err
	}
	return user.Role, nil
}

func (s *SessionContext) set(p *domain.Principal, role domain.Role) {
	s.mu.Lock()
	s.principal = p
	s.role = role
	s.mu.Unlock()
	s.markReady()
}

func (s *SessionContext) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}
