// Package session establishes the request identity: an existing session
// cookie, then a custom-token exchange, then an anonymous sign-in.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/identity"
)

const (
	CookieName = "timebank_session"
	TokenParam = "token"
)

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity set by the session middleware.
func FromContext(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(identity.Identity)
	return id, ok
}

type Config struct {
	// InitialToken is exchanged when a request has neither a session nor
	// a ?token= parameter.
	InitialToken   string
	AllowAnonymous bool
	SecureCookie   bool
}

type Manager struct {
	provider *identity.Provider
	cfg      Config
	log      *slog.Logger
}

func NewManager(provider *identity.Provider, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, cfg: cfg, log: logger}
}

// Load attaches the identity from the session cookie, if any.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.fromCookie(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Require bootstraps an identity when the request has none, and
// redirects to loginPath when bootstrapping fails.
func (m *Manager) Require(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				id, ok = m.bootstrap(w, r)
			}
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Start issues a session cookie for id.
func (m *Manager) Start(w http.ResponseWriter, id identity.Identity) error {
	token, err := m.provider.IssueSession(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.provider.SessionTTL() / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End clears the session cookie.
func (m *Manager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) fromCookie(r *http.Request) (identity.Identity, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return identity.Identity{}, false
	}
	id, err := m.provider.ParseSession(c.Value)
	if err != nil {
		m.log.Debug("discarding session cookie", "error", err)
		return identity.Identity{}, false
	}
	return id, true
}

func (m *Manager) bootstrap(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	ctx := r.Context()
	var (
		id  identity.Identity
		err error
	)
	token := r.URL.Query().Get(TokenParam)
	if token == "" {
		token = m.cfg.InitialToken
	}
	switch {
	case token != "":
		id, err = m.provider.SignInWithCustomToken(ctx, token)
	case m.cfg.AllowAnonymous:
		id, err = m.provider.SignInAnonymously(ctx)
	default:
		return identity.Identity{}, false
	}
	if err != nil {
		m.log.Error("session bootstrap failed", "error", err)
		return identity.Identity{}, false
	}
	if err := m.Start(w, id); err != nil {
		m.log.Error("start session", "error", err)
		return identity.Identity{}, false
	}
	return id, true
}
