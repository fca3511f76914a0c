// Package memstore is an in-process store.Store used for local
// development and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
)

type Store struct {
	mu       sync.Mutex
	status   map[string]model.Status
	banks    map[string]model.TimeOffBank
	profiles map[string]model.Profile
	entries  map[string][]model.TimeEntry
	watchers map[string][]chan store.Change
}

func New() *Store {
	return &Store{
		status:   map[string]model.Status{},
		banks:    map[string]model.TimeOffBank{},
		profiles: map[string]model.Profile{},
		entries:  map[string][]model.TimeEntry{},
		watchers: map[string][]chan store.Change{},
	}
}

func (s *Store) Status(ctx context.Context, userID string) (model.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[userID]
	return st, ok, nil
}

func (s *Store) SetStatus(ctx context.Context, userID string, st model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[userID] = st
	s.notify(userID, store.ChangeStatus)
	return nil
}

func (s *Store) AddEntry(ctx context.Context, entry model.TimeEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	s.notify(entry.UserID, store.ChangeEntries)
	return entry.ID, nil
}

func (s *Store) OpenEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []model.TimeEntry
	for _, e := range s.entries[userID] {
		if e.Open() {
			open = append(open, e)
		}
	}
	return open, nil
}

func (s *Store) CloseEntry(ctx context.Context, userID, entryID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries[userID] {
		if e.ID == entryID {
			s.entries[userID][i].ClockOut = &at
			s.notify(userID, store.ChangeEntries)
			return nil
		}
	}
	return store.ErrEntryNotFound
}

func (s *Store) Entries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TimeEntry, len(s.entries[userID]))
	copy(out, s.entries[userID])
	return out, nil
}

func (s *Store) ListOpenEntries(ctx context.Context) ([]model.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []model.TimeEntry
	for _, list := range s.entries {
		for _, e := range list {
			if e.Open() {
				open = append(open, e)
			}
		}
	}
	return open, nil
}

func (s *Store) Bank(ctx context.Context, userID string) (model.TimeOffBank, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banks[userID]
	return b, ok, nil
}

func (s *Store) SetBank(ctx context.Context, userID string, b model.TimeOffBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[userID] = b
	s.notify(userID, store.ChangeBank)
	return nil
}

func (s *Store) PutProfile(ctx context.Context, userID string, p model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
	return nil
}

func (s *Store) Profile(ctx context.Context, userID string) (model.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok, nil
}

func (s *Store) Watch(ctx context.Context, userID string) (<-chan store.Change, error) {
	ch := make(chan store.Change, 16)
	s.mu.Lock()
	s.watchers[userID] = append(s.watchers[userID], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[userID]
		for i, w := range list {
			if w == ch {
				s.watchers[userID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// notify must be called with mu held. Slow watchers drop changes rather
// than block writers.
func (s *Store) notify(userID string, kind store.ChangeKind) {
	for _, w := range s.watchers[userID] {
		select {
		case w <- store.Change{UserID: userID, Kind: kind}:
		default:
		}
	}
}
