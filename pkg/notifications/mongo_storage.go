package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage is a MongoDB implementation of the Storage interface. Each
// notification is a document in a single collection keyed by its ID.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a Mongo-backed notification storage using the given
// collection name within db.
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	if collection == "" {
		collection = "notifications"
	}
	return &MongoStorage{coll: db.Collection(collection)}
}

type notificationDoc struct {
	ID        string         `bson:"_id"`
	UserID    string         `bson:"user_id"`
	Type      string         `bson:"type"`
	Title     string         `bson:"title"`
	Body      string         `bson:"body,omitempty"`
	ActionURL string         `bson:"action_url,omitempty"`
	IconURL   string         `bson:"icon_url,omitempty"`
	ImageURL  string         `bson:"image_url,omitempty"`
	Data      map[string]any `bson:"data,omitempty"`
	EventKey  string         `bson:"event_key,omitempty"`
	Read      bool           `bson:"read"`
	ReadAt    *time.Time     `bson:"read_at,omitempty"`
	SentAt    *time.Time     `bson:"sent_at,omitempty"`
	ExpiresAt *time.Time     `bson:"expires_at,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}

func toNotificationDoc(n Notification) notificationDoc {
	return notificationDoc{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		ActionURL: n.ActionURL,
		IconURL:   n.IconURL,
		ImageURL:  n.ImageURL,
		Data:      n.Data,
		EventKey:  n.EventKey,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		SentAt:    n.SentAt,
		ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt,
	}
}

func (d notificationDoc) toNotification() Notification {
	return Notification{
		ID:        d.ID,
		UserID:    d.UserID,
		Type:      Type(d.Type),
		Title:     d.Title,
		Body:      d.Body,
		ActionURL: d.ActionURL,
		IconURL:   d.IconURL,
		ImageURL:  d.ImageURL,
		Data:      d.Data,
		EventKey:  d.EventKey,
		Read:      d.Read,
		ReadAt:    d.ReadAt,
		SentAt:    d.SentAt,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}

func (s *MongoStorage) Create(ctx context.Context, notif Notification) error {
	if err := notif.Validate(); err != nil {
		return err
	}
	if notif.ID == "" {
		return ErrInvalidNotification
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	if _, err := s.coll.InsertOne(ctx, toNotificationDoc(notif)); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *MongoStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	var doc notificationDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": notifID, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}

	notif := doc.toNotification()
	return &notif, nil
}

// notExpiredFilter matches documents that either never expire or have not
// expired yet.
func notExpiredFilter() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expires_at": bson.M{"$exists": false}},
		bson.M{"expires_at": nil},
		bson.M{"expires_at": bson.M{"$gt": time.Now()}},
	}}
}

func (s *MongoStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	filter := bson.M{"user_id": userID}
	and := bson.A{notExpiredFilter()}

	if opts.OnlyUnread {
		filter["read"] = false
	}
	if opts.EventKey != "" {
		filter["event_key"] = opts.EventKey
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		filter["type"] = bson.M{"$in": types}
	}
	if opts.Since != nil {
		filter["created_at"] = bson.M{"$gte": *opts.Since}
	}
	filter["$and"] = and

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifs := []Notification{}
	for cursor.Next(ctx) {
		var doc notificationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		notifs = append(notifs, doc.toNotification())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifs, nil
}

func (s *MongoStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}

	// Only unread documents get a read_at stamp so re-marking keeps the
	// original read time.
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": notifIDs}, "user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *MongoStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	if len(notifIDs) == 0 {
		return nil
	}

	_, err := s.coll.DeleteMany(ctx,
		bson.M{"_id": bson.M{"$in": notifIDs}, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

func (s *MongoStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"user_id": userID,
		"read":    false,
		"$and":    bson.A{notExpiredFilter()},
	})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return int(count), nil
}

// EnsureIndexes creates the indexes the storage queries rely on. Call once at
// startup.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}
