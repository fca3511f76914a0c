package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyquangvevo/vcs-timebank/internal/ledger"
	"github.com/huyquangvevo/vcs-timebank/internal/model"
	"github.com/huyquangvevo/vcs-timebank/internal/store/memstore"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*Service, *memstore.Store, *fakeClock) {
	st := memstore.New()
	fc := &fakeClock{t: time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)}
	return NewService(st, fc.now, nil), st, fc
}

func TestDashboardCreatesMissingDocuments(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService()

	v, err := svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, v.Status.ClockedIn)
	assert.Empty(t, v.Entries)
	assert.Equal(t, model.TimeOffBank{}, v.Bank)

	_, ok, err := st.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = st.Bank(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClockInOut(t *testing.T) {
	ctx := context.Background()
	svc, st, fc := newTestService()
	require.NoError(t, st.SetBank(ctx, "u1", model.TimeOffBank{AccruedHours: 1.5, UsedHours: 0.5}))

	require.NoError(t, svc.ClockIn(ctx, "u1"))
	v, err := svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, v.Status.ClockedIn)
	require.Len(t, v.Entries, 1)
	assert.True(t, v.Entries[0].Open())

	fc.advance(7*time.Hour + 30*time.Minute)
	hours, err := svc.ClockOut(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7.5, hours)

	v, err = svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, v.Status.ClockedIn)
	require.Len(t, v.Entries, 1)
	assert.False(t, v.Entries[0].Open())
	assert.Equal(t, model.TimeOffBank{AccruedHours: 9, UsedHours: 0.5}, v.Bank)
	assert.Equal(t, 8.5, v.Balance())
}

func TestClockInRefusedWhileOpen(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService()

	require.NoError(t, svc.ClockIn(ctx, "u1"))
	assert.ErrorIs(t, svc.ClockIn(ctx, "u1"), ErrAlreadyClockedIn)

	// An open entry blocks clock-in even when the status flag disagrees.
	require.NoError(t, st.SetStatus(ctx, "u1", model.Status{ClockedIn: false}))
	assert.ErrorIs(t, svc.ClockIn(ctx, "u1"), ErrAlreadyClockedIn)

	open, err := st.OpenEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestClockOutWithoutOpenEntry(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ClockOut(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoOpenEntry)
}

func TestClockOutAccruesAcrossShifts(t *testing.T) {
	ctx := context.Background()
	svc, st, fc := newTestService()

	for _, d := range []time.Duration{2 * time.Hour, 45 * time.Minute, 15 * time.Minute} {
		require.NoError(t, svc.ClockIn(ctx, "u1"))
		fc.advance(d)
		_, err := svc.ClockOut(ctx, "u1")
		require.NoError(t, err)
		fc.advance(time.Hour)
	}

	bank, _, err := st.Bank(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, bank.AccruedHours, 1e-9)

	v, err := svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, v.Entries, 3)
	assert.True(t, v.Entries[0].ClockIn.After(*v.Entries[1].ClockIn))
}

func TestUseHours(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService()
	require.NoError(t, st.SetBank(ctx, "u1", model.TimeOffBank{AccruedHours: 8}))

	bank, err := svc.UseHours(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, bank.UsedHours)

	_, err = svc.UseHours(ctx, "u1", 6)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	stored, _, err := st.Bank(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.TimeOffBank{AccruedHours: 8, UsedHours: 3}, stored)
}

func TestRegisterWritesProfile(t *testing.T) {
	ctx := context.Background()
	svc, st, fc := newTestService()

	require.NoError(t, svc.Register(ctx, "u1", "ana@example.com"))

	p, ok, err := st.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.Profile{Email: "ana@example.com", CreatedAt: fc.t}, p)
}
