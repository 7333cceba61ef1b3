package domain

import (
	"context"
	"time"
)

// Principal is the authenticated identity issued by the identity gateway.
// Token is the gateway session token the browser presents on later requests.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
	Token       string
}

// Name returns the display name, falling back to the email address.
func (p *Principal) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// AuthStateFunc receives the principal bound to a session token, or nil once
// the session is absent or signed out.
type AuthStateFunc func(p *Principal)

// IdentityGateway is the email/password authentication provider.
type IdentityGateway interface {
	CreateAccount(ctx context.Context, email, password string) (*Principal, error)
	SetDisplayName(ctx context.Context, p *Principal, name string) error
	Authenticate(ctx context.Context, email, password string) (*Principal, error)
	SignOut(ctx context.Context, p *Principal) error
	// OnAuthStateChange subscribes to the auth state of one session token.
	// The current state is delivered asynchronously after subscribing, and
	// again on every later change. The returned func unsubscribes.
	OnAuthStateChange(token string, fn AuthStateFunc) (unsubscribe func())
}

// Account is the gateway's credential record.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountRepository persists gateway credentials.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdateDisplayName(ctx context.Context, id, name string) error
}

// AuthSession is one signed-in browser session issued by the gateway.
type AuthSession struct {
	ID          string
	AccountID   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	SignedOutAt *time.Time
}

// Active reports whether the session can still authenticate requests at now.
func (s *AuthSession) Active(now time.Time) bool {
	return s.SignedOutAt == nil && now.Before(s.ExpiresAt)
}

// AuthSessionRepository persists gateway sessions.
type AuthSessionRepository interface {
	Create(ctx context.Context, session *AuthSession) error
	GetByID(ctx context.Context, id string) (*AuthSession, error)
	MarkSignedOut(ctx context.Context, id string, at time.Time) error
}
