// Package store defines the per-user document store behind the time clock.
// Each user owns three documents (status, time off bank, profile) and one
// collection of time entries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
)

var ErrEntryNotFound = errors.New("time entry not found")

type ChangeKind string

const (
	ChangeStatus  ChangeKind = "status"
	ChangeEntries ChangeKind = "entries"
	ChangeBank    ChangeKind = "bank"
)

// Change is emitted by Watch whenever one of the user's documents changes.
type Change struct {
	UserID string
	Kind   ChangeKind
}

type Store interface {
	// Status returns the user's status and whether the document exists.
	Status(ctx context.Context, userID string) (model.Status, bool, error)
	SetStatus(ctx context.Context, userID string, s model.Status) error

	AddEntry(ctx context.Context, entry model.TimeEntry) (string, error)
	// OpenEntries returns the user's entries whose clock-out is null.
	OpenEntries(ctx context.Context, userID string) ([]model.TimeEntry, error)
	CloseEntry(ctx context.Context, userID, entryID string, at time.Time) error
	Entries(ctx context.Context, userID string) ([]model.TimeEntry, error)
	// ListOpenEntries returns open entries across all users.
	ListOpenEntries(ctx context.Context) ([]model.TimeEntry, error)

	// Bank returns the user's time off bank and whether the document exists.
	Bank(ctx context.Context, userID string) (model.TimeOffBank, bool, error)
	SetBank(ctx context.Context, userID string, b model.TimeOffBank) error

	PutProfile(ctx context.Context, userID string, p model.Profile) error
	Profile(ctx context.Context, userID string) (model.Profile, bool, error)

	// Watch subscribes to changes of the user's documents. The channel is
	// closed once ctx is done.
	Watch(ctx context.Context, userID string) (<-chan Change, error)

	Close(ctx context.Context) error
}
