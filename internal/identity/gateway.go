// Package identity implements the email/password identity gateway. Accounts
// and signed-in sessions live in the record store; the browser carries an
// HS256 JWT whose jti names the session row.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/pyq-archive/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	// SessionTTL is how long an issued session token stays valid.
	SessionTTL = 24 * time.Hour

	minPasswordLength = 6
	lookupTimeout     = 5 * time.Second
)

// Gateway implements domain.IdentityGateway.
type Gateway struct {
	accounts   domain.AccountRepository
	sessions   domain.AuthSessionRepository
	jwtSecret  []byte
	bcryptCost int
	now        func() time.Time

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
}

// NewGateway creates a new Gateway.
func NewGateway(accounts domain.AccountRepository, sessions domain.AuthSessionRepository, jwtSecret string, bcryptCost int) *Gateway {
	return &Gateway{
		accounts:   accounts,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
		now:        time.Now,
		subs:       make(map[string]map[uint64]*subscription),
	}
}

// CreateAccount registers a new account and signs it in.
func (g *Gateway) CreateAccount(ctx context.Context, email, password string) (*domain.Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := g.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return g.issue(ctx, account)
}

// SetDisplayName updates the account's display name and the given principal.
func (g *Gateway) SetDisplayName(ctx context.Context, p *domain.Principal, name string) error {
	if p == nil {
		return domain.ErrUnauthorized
	}
	if err := g.accounts.UpdateDisplayName(ctx, p.ID, name); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	p.DisplayName = name
	return nil
}

// Authenticate verifies credentials and opens a new session.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*domain.Principal, error) {
	account, err := g.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	return g.issue(ctx, account)
}

// SignOut ends the principal's session and notifies the token's subscribers.
func (g *Gateway) SignOut(ctx context.Context, p *domain.Principal) error {
	if p == nil || p.Token == "" {
		return nil
	}

	_, sessionID, err := g.parse(p.Token)
	if err != nil {
		return err
	}

	if err := g.sessions.MarkSignedOut(ctx, sessionID, g.now()); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	g.notify(p.Token, nil)
	return nil
}

// Verify resolves a session token to its principal. Expired, signed out or
// malformed tokens yield ErrUnauthorized.
func (g *Gateway) Verify(ctx context.Context, token string) (*domain.Principal, error) {
	accountID, sessionID, err := g.parse(token)
	if err != nil {
		return nil, err
	}

	session, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.AccountID != accountID || !session.Active(g.now()) {
		return nil, domain.ErrUnauthorized
	}

	account, err := g.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &domain.Principal{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Token:       token,
	}, nil
}

// OnAuthStateChange subscribes fn to the auth state of token. The current
// state is resolved and delivered on a separate goroutine. A change published
// before that first delivery wins over it.
func (g *Gateway) OnAuthStateChange(token string, fn domain.AuthStateFunc) func() {
	sub := &subscription{fn: fn}

	g.mu.Lock()
	g.nextID++
	id := g.nextID
	if g.subs[token] == nil {
		g.subs[token] = make(map[uint64]*subscription)
	}
	g.subs[token][id] = sub
	g.mu.Unlock()

	go func() {
		var p *domain.Principal
		if token != "" {
			ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
			defer cancel()

			var err error
			p, err = g.Verify(ctx, token)
			if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
				slog.Error("resolve auth state", "error", err)
			}
		}
		sub.deliver(p, true)
	}()

	return func() {
		sub.cancel()

		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs[token], id)
		if len(g.subs[token]) == 0 {
			delete(g.subs, token)
		}
	}
}

func (g *Gateway) notify(token string, p *domain.Principal) {
	g.mu.Lock()
	subs := make([]*subscription, 0, len(g.subs[token]))
	for _, sub := range g.subs[token] {
		subs = append(subs, sub)
	}
	g.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(p, false)
	}
}

func (g *Gateway) issue(ctx context.Context, account *domain.Account) (*domain.Principal, error) {
	now := g.now()
	session := &domain.AuthSession{
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := g.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	claims := jwt.MapClaims{
		"sub":   account.ID,
		"jti":   session.ID,
		"email": account.Email,
		"iat":   now.Unix(),
		"exp":   session.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.Principal{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Token:       token,
	}, nil
}

// parse validates the token signature and expiry and returns the account and
// session ids it names.
func (g *Gateway) parse(tokenString string) (accountID, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.jwtSecret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return "", "", domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", domain.ErrUnauthorized
	}

	accountID, err = claims.GetSubject()
	if err != nil || accountID == "" {
		return "", "", domain.ErrUnauthorized
	}
	sessionID, _ = claims["jti"].(string)
	if sessionID == "" {
		return "", "", domain.ErrUnauthorized
	}

	return accountID, sessionID, nil
}

type subscription struct {
	mu        sync.Mutex
	fn        domain.AuthStateFunc
	delivered bool
	cancelled bool
}

// deliver calls fn unless the subscription is cancelled. The initial state is
// dropped once a later change has already been delivered.
func (s *subscription) deliver(p *domain.Principal, initial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled || (initial && s.delivered) {
		return
	}
	s.delivered = true
	s.fn(p)
}

func (s *subscription) cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}
