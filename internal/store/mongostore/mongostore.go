// Package mongostore keeps the time clock documents in MongoDB. Per-user
// documents are keyed by the user id; time entries carry a user_id field.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/huyquangvevo/vcs-timebank/internal/model"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
)

type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	status   *mongo.Collection
	entries  *mongo.Collection
	banks    *mongo.Collection
	profiles *mongo.Collection
	log      *slog.Logger
}

type entryDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	UserID   string             `bson:"user_id"`
	ClockIn  *time.Time         `bson:"clock_in"`
	ClockOut *time.Time         `bson:"clock_out"`
}

func (d entryDoc) entry() model.TimeEntry {
	return model.TimeEntry{
		ID:       d.ID.Hex(),
		UserID:   d.UserID,
		ClockIn:  d.ClockIn,
		ClockOut: d.ClockOut,
	}
}

// Open connects to uri and uses database name. Collection names are
// prefixed with appID.
func Open(ctx context.Context, uri, name, appID string, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is required for the mongo store")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client, client.Database(name), appID, logger), nil
}

func New(client *mongo.Client, db *mongo.Database, appID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:   client,
		db:       db,
		status:   db.Collection(appID + "_status"),
		entries:  db.Collection(appID + "_time_entries"),
		banks:    db.Collection(appID + "_time_off_bank"),
		profiles: db.Collection(appID + "_profiles"),
		log:      logger,
	}
}

func (s *Store) Status(ctx context.Context, userID string) (model.Status, bool, error) {
	var st model.Status
	ok, err := s.findByID(ctx, s.status, userID, &st)
	if err != nil {
		return st, false, fmt.Errorf("read status: %w", err)
	}
	return st, ok, nil
}

func (s *Store) SetStatus(ctx context.Context, userID string, st model.Status) error {
	if err := s.upsert(ctx, s.status, userID, st); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

func (s *Store) AddEntry(ctx context.Context, entry model.TimeEntry) (string, error) {
	res, err := s.entries.InsertOne(ctx, entryDoc{
		UserID:   entry.UserID,
		ClockIn:  entry.ClockIn,
		ClockOut: entry.ClockOut,
	})
	if err != nil {
		return "", fmt.Errorf("insert time entry: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert time entry: unexpected id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (s *Store) OpenEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	return s.find(ctx, bson.M{"user_id": userID, "clock_out": nil})
}

func (s *Store) CloseEntry(ctx context.Context, userID, entryID string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(entryID)
	if err != nil {
		return store.ErrEntryNotFound
	}
	res, err := s.entries.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"clock_out": at}},
	)
	if err != nil {
		return fmt.Errorf("close time entry: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrEntryNotFound
	}
	return nil
}

func (s *Store) Entries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

func (s *Store) ListOpenEntries(ctx context.Context) ([]model.TimeEntry, error) {
	return s.find(ctx, bson.M{"clock_out": nil})
}

func (s *Store) Bank(ctx context.Context, userID string) (model.TimeOffBank, bool, error) {
	var b model.TimeOffBank
	ok, err := s.findByID(ctx, s.banks, userID, &b)
	if err != nil {
		return b, false, fmt.Errorf("read time off bank: %w", err)
	}
	return b, ok, nil
}

func (s *Store) SetBank(ctx context.Context, userID string, b model.TimeOffBank) error {
	if err := s.upsert(ctx, s.banks, userID, b); err != nil {
		return fmt.Errorf("write time off bank: %w", err)
	}
	return nil
}

func (s *Store) PutProfile(ctx context.Context, userID string, p model.Profile) error {
	if err := s.upsert(ctx, s.profiles, userID, p); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (s *Store) Profile(ctx context.Context, userID string) (model.Profile, bool, error) {
	var p model.Profile
	ok, err := s.findByID(ctx, s.profiles, userID, &p)
	if err != nil {
		return p, false, fmt.Errorf("read profile: %w", err)
	}
	return p, ok, nil
}

// Watch opens a database change stream filtered to the user's documents.
// Change streams need a replica set or sharded cluster.
func (s *Store) Watch(ctx context.Context, userID string) (<-chan store.Change, error) {
	match := bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
		bson.M{
			"ns.coll":         bson.M{"$in": bson.A{s.status.Name(), s.banks.Name()}},
			"documentKey._id": userID,
		},
		bson.M{
			"ns.coll":              s.entries.Name(),
			"fullDocument.user_id": userID,
		},
	}}}}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := s.db.Watch(ctx, mongo.Pipeline{match}, opts)
	if err != nil {
		return nil, fmt.Errorf("open change stream: %w", err)
	}

	ch := make(chan store.Change)
	go func() {
		defer close(ch)
		defer cs.Close(context.Background())
		for cs.Next(ctx) {
			var ev struct {
				Ns struct {
					Coll string `bson:"coll"`
				} `bson:"ns"`
			}
			if err := cs.Decode(&ev); err != nil {
				s.log.Warn("decode change event", "error", err)
				continue
			}
			change := store.Change{UserID: userID, Kind: s.kindOf(ev.Ns.Coll)}
			select {
			case ch <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			s.log.Warn("change stream stopped", "user", userID, "error", err)
		}
	}()
	return ch, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) kindOf(coll string) store.ChangeKind {
	switch coll {
	case s.status.Name():
		return store.ChangeStatus
	case s.banks.Name():
		return store.ChangeBank
	default:
		return store.ChangeEntries
	}
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]model.TimeEntry, error) {
	cur, err := s.entries.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find time entries: %w", err)
	}
	var docs []entryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode time entries: %w", err)
	}
	entries := make([]model.TimeEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.entry())
	}
	return entries, nil
}

func (s *Store) findByID(ctx context.Context, coll *mongo.Collection, id string, out any) (bool, error) {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) upsert(ctx context.Context, coll *mongo.Collection, id string, doc any) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}
