package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T) (*Provider, *MemAccounts) {
	t.Helper()
	accounts := NewMemAccounts()
	p, err := NewProvider(accounts, Options{
		SessionSecret:     "session-secret",
		CustomTokenSecret: "custom-secret",
		SessionTTL:        time.Hour,
		Now:               func() time.Time { return testNow },
		HashCost:          bcrypt.MinCost,
	})
	require.NoError(t, err)
	return p, accounts
}

func TestNewProviderRequiresSessionSecret(t *testing.T) {
	_, err := NewProvider(NewMemAccounts(), Options{})
	require.Error(t, err)
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	id, err := p.SignUp(ctx, " Ana@Example.com ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, id.UserID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.False(t, id.Anonymous)

	got, err := p.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = p.SignIn(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	_, err := p.SignUp(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = p.SignUp(ctx, "ana@example.com", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = p.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = p.SignUp(ctx, "ANA@example.com", "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignInAnonymously(t *testing.T) {
	ctx := context.Background()
	p, accounts := newTestProvider(t)

	id, err := p.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.True(t, id.Anonymous)
	assert.Empty(t, id.Email)

	a, err := accounts.ByID(ctx, id.UserID)
	require.NoError(t, err)
	assert.True(t, a.Anonymous)
}

func TestCustomTokenExchange(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	token, err := p.MintCustomToken("worker-42", time.Hour)
	require.NoError(t, err)

	id, err := p.SignInWithCustomToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "worker-42", id.UserID)

	again, err := p.SignInWithCustomToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestCustomTokenRejected(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t)

	t.Run("wrong key", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)
		_, err = p.SignInWithCustomToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := p.MintCustomToken("u1", -time.Minute)
		require.NoError(t, err)
		_, err = p.SignInWithCustomToken(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := p.SignInWithCustomToken(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("disabled", func(t *testing.T) {
		noCustom, err := NewProvider(NewMemAccounts(), Options{SessionSecret: "s"})
		require.NoError(t, err)
		_, err = noCustom.SignInWithCustomToken(ctx, "anything")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestSessionRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	id := Identity{UserID: "u1", Email: "ana@example.com"}

	token, err := p.IssueSession(id)
	require.NoError(t, err)

	got, err := p.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	later, err := NewProvider(NewMemAccounts(), Options{
		SessionSecret: "session-secret",
		Now:           func() time.Time { return testNow.Add(2 * time.Hour) },
	})
	require.NoError(t, err)
	_, err = later.ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
