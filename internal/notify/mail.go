// Package notify mails users about forgotten clock-outs.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
)

// Sender delivers one message.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	Subject string
}

// NewDialer returns a gomail dialer for cfg.
func NewDialer(cfg MailConfig) *gomail.Dialer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d
}

type Mailer struct {
	sender  Sender
	from    string
	subject string
	log     *slog.Logger
}

func NewMailer(sender Sender, cfg MailConfig, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{sender: sender, from: cfg.User, subject: cfg.Subject, log: logger}
}

// Message builds the mail for one alert.
func (m *Mailer) Message(a model.Alert) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", a.Email)
	msg.SetHeader("Subject", m.subject)
	msg.SetBody("text/html", body(a))
	return msg
}

// SendAlerts mails every alert that has an address. Failures are logged
// and skipped; the number of sent mails is returned.
func (m *Mailer) SendAlerts(ctx context.Context, alerts []model.Alert) int {
	sent := 0
	for _, a := range alerts {
		if ctx.Err() != nil {
			break
		}
		if a.Email == "" {
			m.log.Warn("no email for open entry", "user", a.Entry.UserID, "entry", a.Entry.ID)
			continue
		}
		if err := m.sender.DialAndSend(m.Message(a)); err != nil {
			m.log.Error("Error when send mail", "to", a.Email, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func body(a model.Alert) string {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(a.Message)
	b.WriteString("</p>")
	if a.Entry.ClockIn != nil {
		fmt.Fprintf(&b, "<p>Clocked in at %s, open for %s.</p>",
			a.Entry.ClockIn.UTC().Format(time.RFC3339),
			a.OpenFor.Round(time.Minute))
	}
	b.WriteString("<p>Please clock out or ask your manager to close the entry.</p>")
	return b.String()
}
