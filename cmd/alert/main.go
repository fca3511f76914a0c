package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/app"
	"github.com/huyquangvevo/vcs-timebank/internal/config"
	"github.com/huyquangvevo/vcs-timebank/internal/notify"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	logger := cfg.Logger()
	ctx := context.Background()

	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(ctx)

	mailCfg := notify.MailConfig{
		Host:    cfg.Mail.Host,
		Port:    cfg.Mail.Port,
		User:    cfg.Mail.User,
		Pass:    cfg.Mail.Pass,
		Subject: cfg.Mail.Subject,
	}
	mailer := notify.NewMailer(notify.NewDialer(mailCfg), mailCfg, logger)

	sent, total, err := notify.AlertOverdue(ctx, st, mailer, time.Now(), cfg.MaxShift)
	if err != nil {
		return fmt.Errorf("alert: %w", err)
	}
	logger.Info("alert done", "overdue", total, "sent", sent)
	return nil
}
