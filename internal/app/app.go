// Package app wires configured backends for the commands.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huyquangvevo/vcs-timebank/internal/config"
	"github.com/huyquangvevo/vcs-timebank/internal/identity"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
	"github.com/huyquangvevo/vcs-timebank/internal/store/firestore"
	"github.com/huyquangvevo/vcs-timebank/internal/store/memstore"
	"github.com/huyquangvevo/vcs-timebank/internal/store/mongostore"
)

// OpenStore connects the document store selected by STORE_BACKEND.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoName, cfg.AppID, logger)
	case config.BackendFirestore:
		return firestore.Open(ctx, cfg.FirebaseProjectID, cfg.AppID, logger)
	case config.BackendMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// OpenAccounts connects the account repository selected by
// ACCOUNTS_BACKEND. The returned func releases it.
func OpenAccounts(cfg config.Config) (identity.Accounts, func() error, error) {
	switch cfg.AccountsBackend {
	case config.BackendMySQL:
		accounts, err := identity.OpenGorm(identity.MySQLConfig{
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Name: cfg.DBName,
		})
		if err != nil {
			return nil, nil, err
		}
		return accounts, accounts.Close, nil
	case config.BackendMemory:
		return identity.NewMemAccounts(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown accounts backend %q", cfg.AccountsBackend)
}

// NewProvider builds the identity provider from cfg.
func NewProvider(cfg config.Config, accounts identity.Accounts) (*identity.Provider, error) {
	return identity.NewProvider(accounts, identity.Options{
		SessionSecret:     cfg.SessionSecret,
		CustomTokenSecret: cfg.CustomTokenSecret,
		SessionTTL:        cfg.SessionTTL,
	})
}
