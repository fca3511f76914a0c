package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/ledger"
	"github.com/huyquangvevo/vcs-timebank/internal/model"
)

// Source is the part of store.Store the alert job reads.
type Source interface {
	ListOpenEntries(ctx context.Context) ([]model.TimeEntry, error)
	Profile(ctx context.Context, userID string) (model.Profile, bool, error)
}

// AlertOverdue mails the owner of every entry open longer than maxShift.
// It returns the number of mails sent and the number of overdue entries.
func AlertOverdue(ctx context.Context, src Source, m *Mailer, now time.Time, maxShift time.Duration) (int, int, error) {
	open, err := src.ListOpenEntries(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list open entries: %w", err)
	}
	alerts := ledger.Overdue(open, now, maxShift)
	for i := range alerts {
		p, ok, err := src.Profile(ctx, alerts[i].Entry.UserID)
		if err != nil {
			return 0, len(alerts), fmt.Errorf("read profile: %w", err)
		}
		if ok {
			alerts[i].Email = p.Email
		}
	}
	return m.SendAlerts(ctx, alerts), len(alerts), nil
}
