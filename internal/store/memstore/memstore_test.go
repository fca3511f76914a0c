package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
)

func TestEntriesLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	id, err := s.AddEntry(ctx, model.TimeEntry{UserID: "u1", ClockIn: &in})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	_, err = s.AddEntry(ctx, model.TimeEntry{UserID: "u2", ClockIn: &in})
	require.NoError(t, err)

	open, err := s.OpenEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, id, open[0].ID)

	all, err := s.ListOpenEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.CloseEntry(ctx, "u1", id, in.Add(time.Hour)))
	open, err = s.OpenEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, open)

	entries, err := s.Entries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, in.Add(time.Hour), *entries[0].ClockOut)

	assert.ErrorIs(t, s.CloseEntry(ctx, "u1", "missing", in), store.ErrEntryNotFound)
}

func TestMissingDocuments(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, ok, err := s.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Bank(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetBank(ctx, "u1", model.TimeOffBank{AccruedHours: 2}))
	b, ok, err := s.Bank(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.0, b.AccruedHours)
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()

	changes, err := s.Watch(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(context.Background(), "u1", model.Status{ClockedIn: true}))
	require.NoError(t, s.SetStatus(context.Background(), "u2", model.Status{ClockedIn: true}))
	require.NoError(t, s.SetBank(context.Background(), "u1", model.TimeOffBank{}))

	assert.Equal(t, store.Change{UserID: "u1", Kind: store.ChangeStatus}, <-changes)
	assert.Equal(t, store.Change{UserID: "u1", Kind: store.ChangeBank}, <-changes)

	cancel()
	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
