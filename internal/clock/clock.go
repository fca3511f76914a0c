// Package clock implements clock-in, clock-out and the ledger view on top
// of a store.Store.
package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/ledger"
	"github.com/huyquangvevo/vcs-timebank/internal/model"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
)

var (
	ErrAlreadyClockedIn = errors.New("already clocked in")
	ErrNoOpenEntry      = errors.New("no open time entry found")
)

// View is what the ledger page shows for one user.
type View struct {
	UserID  string
	Status  model.Status
	Entries []model.TimeEntry
	Bank    model.TimeOffBank
}

func (v View) Balance() float64 {
	return ledger.Balance(v.Bank)
}

type Service struct {
	store store.Store
	now   func() time.Time
	log   *slog.Logger
}

func NewService(s store.Store, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, now: now, log: logger}
}

// Dashboard loads the user's status, entries and bank. Missing status and
// bank documents are created with zero values.
func (s *Service) Dashboard(ctx context.Context, userID string) (View, error) {
	v := View{UserID: userID}

	st, ok, err := s.store.Status(ctx, userID)
	if err != nil {
		return v, err
	}
	if !ok {
		if err := s.store.SetStatus(ctx, userID, model.Status{}); err != nil {
			return v, fmt.Errorf("create status: %w", err)
		}
	}
	v.Status = st

	entries, err := s.store.Entries(ctx, userID)
	if err != nil {
		return v, err
	}
	ledger.SortNewestFirst(entries)
	v.Entries = entries

	bank, ok, err := s.store.Bank(ctx, userID)
	if err != nil {
		return v, err
	}
	if !ok {
		if err := s.store.SetBank(ctx, userID, model.TimeOffBank{}); err != nil {
			return v, fmt.Errorf("create time off bank: %w", err)
		}
	}
	v.Bank = bank
	return v, nil
}

// ClockIn opens a new entry. It refuses while another entry is open.
func (s *Service) ClockIn(ctx context.Context, userID string) error {
	st, _, err := s.store.Status(ctx, userID)
	if err != nil {
		return err
	}
	if st.ClockedIn {
		return ErrAlreadyClockedIn
	}
	open, err := s.store.OpenEntries(ctx, userID)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return ErrAlreadyClockedIn
	}

	now := s.now()
	id, err := s.store.AddEntry(ctx, model.TimeEntry{UserID: userID, ClockIn: &now})
	if err != nil {
		return err
	}
	if err := s.store.SetStatus(ctx, userID, model.Status{ClockedIn: true}); err != nil {
		return err
	}
	s.log.Info("clock in", "user", userID, "entry", id)
	return nil
}

// ClockOut closes an open entry and adds its elapsed hours to the bank.
// The close, the bank update and the status update are separate writes.
func (s *Service) ClockOut(ctx context.Context, userID string) (float64, error) {
	open, err := s.store.OpenEntries(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		return 0, ErrNoOpenEntry
	}
	ledger.SortNewestFirst(open)
	entry := open[0]

	now := s.now()
	if err := s.store.CloseEntry(ctx, userID, entry.ID, now); err != nil {
		return 0, err
	}

	var hours float64
	if entry.ClockIn != nil {
		bank, _, err := s.store.Bank(ctx, userID)
		if err != nil {
			return 0, err
		}
		hours = ledger.HoursBetween(*entry.ClockIn, now)
		if err := s.store.SetBank(ctx, userID, ledger.Accrue(bank, *entry.ClockIn, now)); err != nil {
			return 0, err
		}
	}

	if err := s.store.SetStatus(ctx, userID, model.Status{ClockedIn: false}); err != nil {
		return 0, err
	}
	s.log.Info("clock out", "user", userID, "entry", entry.ID, "hours", hours)
	return hours, nil
}

// UseHours records time off taken against the user's bank.
func (s *Service) UseHours(ctx context.Context, userID string, hours float64) (model.TimeOffBank, error) {
	bank, _, err := s.store.Bank(ctx, userID)
	if err != nil {
		return bank, err
	}
	bank, err = ledger.Use(bank, hours)
	if err != nil {
		return bank, err
	}
	if err := s.store.SetBank(ctx, userID, bank); err != nil {
		return bank, err
	}
	s.log.Info("time off used", "user", userID, "hours", hours)
	return bank, nil
}

// Register writes the profile record for a newly created account.
func (s *Service) Register(ctx context.Context, userID, email string) error {
	return s.store.PutProfile(ctx, userID, model.Profile{Email: email, CreatedAt: s.now().UTC()})
}
