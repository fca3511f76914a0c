package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
)

type recordingSender struct {
	sent []*gomail.Message
	fail map[string]bool
}

func (r *recordingSender) DialAndSend(msgs ...*gomail.Message) error {
	for _, m := range msgs {
		if r.fail[m.GetHeader("To")[0]] {
			return errors.New("smtp down")
		}
		r.sent = append(r.sent, m)
	}
	return nil
}

func TestSendAlerts(t *testing.T) {
	in := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	sender := &recordingSender{fail: map[string]bool{"bad@example.com": true}}
	m := NewMailer(sender, MailConfig{User: "clock@example.com", Subject: "Open time entry"}, nil)

	alerts := []model.Alert{
		{Entry: model.TimeEntry{ID: "e1", UserID: "u1", ClockIn: &in}, Email: "ana@example.com", OpenFor: 13 * time.Hour, Message: model.ALERT_OVER_SHIFT},
		{Entry: model.TimeEntry{ID: "e2", UserID: "u2", ClockIn: &in}, Message: model.ALERT_OVER_SHIFT},
		{Entry: model.TimeEntry{ID: "e3", UserID: "u3", ClockIn: &in}, Email: "bad@example.com", Message: model.ALERT_OVER_SHIFT},
	}

	assert.Equal(t, 1, m.SendAlerts(context.Background(), alerts))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"clock@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Open time entry"}, msg.GetHeader("Subject"))

	b := body(alerts[0])
	assert.Contains(t, b, model.ALERT_OVER_SHIFT)
	assert.Contains(t, b, "2024-03-04T08:00:00Z")
	assert.Contains(t, b, "13h0m0s")
}
