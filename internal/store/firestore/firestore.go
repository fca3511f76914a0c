// Package firestore keeps the time clock documents in Cloud Firestore.
// Per-user documents live in artifacts/{appId}/users/{uid}/private_user_data
// and time entries in artifacts/{appId}/users/{uid}/time_entries.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
)

const (
	statusDoc      = "status"
	bankDoc        = "time_off_bank"
	profileDoc     = "profile"
	entriesSegment = "time_entries"
	usersSegment   = "users"
)

type Store struct {
	fs    *gcfirestore.Client
	appID string
	log   *slog.Logger
}

// Open initializes a Firebase app for projectID and returns a store on
// its Firestore client. Credentials come from the environment.
func Open(ctx context.Context, projectID, appID string, logger *slog.Logger) (*Store, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("fail to init firebase app: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to connect firestore: %w", err)
	}
	return New(fs, appID, logger), nil
}

func New(fs *gcfirestore.Client, appID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, appID: appID, log: logger}
}

// UserDataPath is the collection holding a user's private documents.
func UserDataPath(appID, userID string) string {
	return fmt.Sprintf("artifacts/%s/%s/%s/private_user_data", appID, usersSegment, userID)
}

// EntriesPath is the collection holding a user's time entries. Its last
// segment is the collection group id used by ListOpenEntries.
func EntriesPath(appID, userID string) string {
	return fmt.Sprintf("artifacts/%s/%s/%s/%s", appID, usersSegment, userID, entriesSegment)
}

func (s *Store) userDoc(userID, name string) *gcfirestore.DocumentRef {
	return s.fs.Collection(UserDataPath(s.appID, userID)).Doc(name)
}

func (s *Store) entries(userID string) *gcfirestore.CollectionRef {
	return s.fs.Collection(EntriesPath(s.appID, userID))
}

func (s *Store) Status(ctx context.Context, userID string) (model.Status, bool, error) {
	var st model.Status
	ok, err := s.get(ctx, s.userDoc(userID, statusDoc), &st)
	if err != nil {
		return st, false, fmt.Errorf("read status: %w", err)
	}
	return st, ok, nil
}

func (s *Store) SetStatus(ctx context.Context, userID string, st model.Status) error {
	if _, err := s.userDoc(userID, statusDoc).Set(ctx, st); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

func (s *Store) AddEntry(ctx context.Context, entry model.TimeEntry) (string, error) {
	ref, _, err := s.entries(entry.UserID).Add(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("add time entry: %w", err)
	}
	return ref.ID, nil
}

func (s *Store) OpenEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	q := s.entries(userID).
		Where("userId", "==", userID).
		Where("clockOutTime", "==", nil)
	return s.query(ctx, q)
}

func (s *Store) CloseEntry(ctx context.Context, userID, entryID string, at time.Time) error {
	_, err := s.entries(userID).Doc(entryID).Update(ctx, []gcfirestore.Update{
		{Path: "clockOutTime", Value: at},
	})
	if status.Code(err) == codes.NotFound {
		return store.ErrEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("close time entry: %w", err)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	return s.query(ctx, s.entries(userID).Where("userId", "==", userID))
}

// ListOpenEntries runs a collection group query over every user's entries.
func (s *Store) ListOpenEntries(ctx context.Context) ([]model.TimeEntry, error) {
	return s.query(ctx, s.fs.CollectionGroup(entriesSegment).Where("clockOutTime", "==", nil))
}

func (s *Store) Bank(ctx context.Context, userID string) (model.TimeOffBank, bool, error) {
	var b model.TimeOffBank
	ok, err := s.get(ctx, s.userDoc(userID, bankDoc), &b)
	if err != nil {
		return b, false, fmt.Errorf("read time off bank: %w", err)
	}
	return b, ok, nil
}

func (s *Store) SetBank(ctx context.Context, userID string, b model.TimeOffBank) error {
	if _, err := s.userDoc(userID, bankDoc).Set(ctx, b); err != nil {
		return fmt.Errorf("write time off bank: %w", err)
	}
	return nil
}

func (s *Store) PutProfile(ctx context.Context, userID string, p model.Profile) error {
	if _, err := s.userDoc(userID, profileDoc).Set(ctx, p); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (s *Store) Profile(ctx context.Context, userID string) (model.Profile, bool, error) {
	var p model.Profile
	ok, err := s.get(ctx, s.userDoc(userID, profileDoc), &p)
	if err != nil {
		return p, false, fmt.Errorf("read profile: %w", err)
	}
	return p, ok, nil
}

// Watch runs one snapshot listener per document and one for the entries
// query, and merges them into a single channel.
func (s *Store) Watch(ctx context.Context, userID string) (<-chan store.Change, error) {
	ch := make(chan store.Change)
	done := make(chan struct{}, 3)

	emit := func(kind store.ChangeKind) bool {
		select {
		case ch <- store.Change{UserID: userID, Kind: kind}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	watchDoc := func(ref *gcfirestore.DocumentRef, kind store.ChangeKind) {
		defer func() { done <- struct{}{} }()
		it := ref.Snapshots(ctx)
		defer it.Stop()
		for {
			if _, err := it.Next(); err != nil {
				s.stopped(ctx, userID, kind, err)
				return
			}
			if !emit(kind) {
				return
			}
		}
	}

	go watchDoc(s.userDoc(userID, statusDoc), store.ChangeStatus)
	go watchDoc(s.userDoc(userID, bankDoc), store.ChangeBank)
	go func() {
		defer func() { done <- struct{}{} }()
		it := s.entries(userID).Where("userId", "==", userID).Snapshots(ctx)
		defer it.Stop()
		for {
			if _, err := it.Next(); err != nil {
				s.stopped(ctx, userID, store.ChangeEntries, err)
				return
			}
			if !emit(store.ChangeEntries) {
				return
			}
		}
	}()

	go func() {
		for i := 0; i < 3; i++ {
			<-done
		}
		close(ch)
	}()
	return ch, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.fs.Close()
}

func (s *Store) stopped(ctx context.Context, userID string, kind store.ChangeKind, err error) {
	if ctx.Err() != nil || status.Code(err) == codes.Canceled {
		return
	}
	s.log.Warn("snapshot listener stopped", "user", userID, "kind", kind, "error", err)
}

func (s *Store) get(ctx context.Context, ref *gcfirestore.DocumentRef, out any) (bool, error) {
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := snap.DataTo(out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) query(ctx context.Context, q gcfirestore.Query) ([]model.TimeEntry, error) {
	it := q.Documents(ctx)
	defer it.Stop()
	var entries []model.TimeEntry
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query time entries: %w", err)
		}
		var e model.TimeEntry
		if err := snap.DataTo(&e); err != nil {
			return nil, fmt.Errorf("decode time entry %s: %w", snap.Ref.ID, err)
		}
		e.ID = snap.Ref.ID
		entries = append(entries, e)
	}
	return entries, nil
}
