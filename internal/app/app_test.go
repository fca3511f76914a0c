package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyquangvevo/vcs-timebank/internal/config"
	"github.com/huyquangvevo/vcs-timebank/internal/store/memstore"
)

func TestOpenMemoryBackends(t *testing.T) {
	cfg := config.Config{
		StoreBackend:    config.BackendMemory,
		AccountsBackend: config.BackendMemory,
		SessionSecret:   "s",
	}

	st, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, st)

	accounts, closeFn, err := OpenAccounts(cfg)
	require.NoError(t, err)
	require.NoError(t, closeFn())

	p, err := NewProvider(cfg, accounts)
	require.NoError(t, err)
	_, err = p.SignInAnonymously(context.Background())
	require.NoError(t, err)
}

func TestOpenUnknownBackends(t *testing.T) {
	_, err := OpenStore(context.Background(), config.Config{StoreBackend: "redis"}, nil)
	assert.Error(t, err)

	_, _, err = OpenAccounts(config.Config{AccountsBackend: "ldap"})
	assert.Error(t, err)
}
