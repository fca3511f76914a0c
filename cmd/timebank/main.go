package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/app"
	"github.com/huyquangvevo/vcs-timebank/internal/clock"
	"github.com/huyquangvevo/vcs-timebank/internal/config"
	"github.com/huyquangvevo/vcs-timebank/internal/session"
	"github.com/huyquangvevo/vcs-timebank/internal/web"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	mintFor := flag.String("mint-token", "", "print a custom sign-in token for this user id and exit")
	mintTTL := flag.Duration("mint-ttl", time.Hour, "lifetime of a minted custom token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, closeAccounts, err := app.OpenAccounts(cfg)
	if err != nil {
		return fmt.Errorf("open accounts: %w", err)
	}
	defer closeAccounts()

	provider, err := app.NewProvider(cfg, accounts)
	if err != nil {
		return fmt.Errorf("init identity provider: %w", err)
	}

	if *mintFor != "" {
		token, err := provider.MintCustomToken(*mintFor, *mintTTL)
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(context.Background())

	sessions := session.NewManager(provider, session.Config{
		InitialToken:   cfg.InitialAuthToken,
		AllowAnonymous: cfg.AllowAnonymous,
		SecureCookie:   cfg.SecureCookie,
	}, logger)
	svc := clock.NewService(st, time.Now, logger)
	srv := web.NewServer(svc, provider, sessions, st, web.NewFormatter(cfg.Locale, time.Local), logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("time clock listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "accounts", cfg.AccountsBackend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
