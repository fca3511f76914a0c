package ledger

import (
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
)

type EntryState int

const (
	StateClosed EntryState = iota
	StateOpen
	StateOverdue
)

// Classify reports whether an entry is closed, open, or has been open
// for longer than maxShift at now.
func Classify(entry model.TimeEntry, now time.Time, maxShift time.Duration) EntryState {
	if !entry.Open() {
		return StateClosed
	}
	if entry.ClockIn != nil && now.Sub(*entry.ClockIn) > maxShift {
		return StateOverdue
	}
	return StateOpen
}

// Overdue builds alerts for every open entry past maxShift.
func Overdue(entries []model.TimeEntry, now time.Time, maxShift time.Duration) []model.Alert {
	var alerts []model.Alert
	for _, e := range entries {
		if Classify(e, now, maxShift) != StateOverdue {
			continue
		}
		alerts = append(alerts, model.Alert{
			Entry:   e,
			OpenFor: now.Sub(*e.ClockIn),
			Message: model.ALERT_OVER_SHIFT,
		})
	}
	return alerts
}
