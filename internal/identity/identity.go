// Package identity is the time clock's identity provider: email/password
// accounts, custom-token exchange, anonymous sign-in, and signed session
// tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrEmailTaken         = errors.New("email address is already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// Identity is an authenticated user.
type Identity struct {
	UserID    string
	Email     string
	Anonymous bool
}

type Options struct {
	SessionSecret     string
	CustomTokenSecret string
	SessionTTL        time.Duration
	Now               func() time.Time
	// HashCost defaults to bcrypt.DefaultCost.
	HashCost int
}

type Provider struct {
	accounts   Accounts
	sessionKey []byte
	customKey  []byte
	sessionTTL time.Duration
	now        func() time.Time
	hashCost   int
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anon,omitempty"`
}

func NewProvider(accounts Accounts, opts Options) (*Provider, error) {
	if opts.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	p := &Provider{
		accounts:   accounts,
		sessionKey: []byte(opts.SessionSecret),
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
		hashCost:   opts.HashCost,
	}
	if opts.CustomTokenSecret != "" {
		p.customKey = []byte(opts.CustomTokenSecret)
	}
	return p, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return Identity{}, ErrWeakPassword
	}
	if _, err := p.accounts.ByEmail(ctx, email); err == nil {
		return Identity{}, ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.hashCost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{
		ID:           uuid.NewString(),
		Email:        &email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, a); err != nil {
		return Identity{}, err
	}
	return identityOf(a), nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	a, err := p.accounts.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrAccountNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}
	if a.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return identityOf(a), nil
}

// SignInWithCustomToken exchanges a token minted by a trusted backend for
// an identity. The subject is the user id; unknown subjects get an account.
func (p *Provider) SignInWithCustomToken(ctx context.Context, token string) (Identity, error) {
	if p.customKey == nil {
		return Identity{}, fmt.Errorf("%w: custom tokens are not enabled", ErrInvalidToken)
	}
	var claims jwt.RegisteredClaims
	if err := p.parse(token, p.customKey, &claims); err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	a, err := p.accounts.ByID(ctx, claims.Subject)
	if errors.Is(err, ErrAccountNotFound) {
		a = &Account{ID: claims.Subject, CreatedAt: p.now().UTC()}
		if err := p.accounts.Create(ctx, a); err != nil {
			return Identity{}, err
		}
	} else if err != nil {
		return Identity{}, err
	}
	return identityOf(a), nil
}

// MintCustomToken signs a custom token for userID, valid for ttl.
func (p *Provider) MintCustomToken(userID string, ttl time.Duration) (string, error) {
	if p.customKey == nil {
		return "", errors.New("custom token secret is not configured")
	}
	now := p.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.customKey)
}

func (p *Provider) SignInAnonymously(ctx context.Context) (Identity, error) {
	a := &Account{ID: uuid.NewString(), Anonymous: true, CreatedAt: p.now().UTC()}
	if err := p.accounts.Create(ctx, a); err != nil {
		return Identity{}, err
	}
	return identityOf(a), nil
}

// Lookup loads the current identity of an existing account.
func (p *Provider) Lookup(ctx context.Context, userID string) (Identity, error) {
	a, err := p.accounts.ByID(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return identityOf(a), nil
}

// IssueSession signs a session token for id.
func (p *Provider) IssueSession(id Identity) (string, error) {
	now := p.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.sessionTTL)),
		},
		Email:     id.Email,
		Anonymous: id.Anonymous,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.sessionKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// ParseSession verifies a session token and returns its identity.
func (p *Provider) ParseSession(token string) (Identity, error) {
	var claims sessionClaims
	if err := p.parse(token, p.sessionKey, &claims); err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, Anonymous: claims.Anonymous}, nil
}

func (p *Provider) SessionTTL() time.Duration {
	return p.sessionTTL
}

func (p *Provider) parse(token string, key []byte, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func identityOf(a *Account) Identity {
	return Identity{UserID: a.ID, Email: a.EmailAddress(), Anonymous: a.Anonymous}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
