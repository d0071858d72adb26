package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"serenote/internal/domain"
)

// Mongo stores tasks and events in MongoDB, one document per task keyed by message id.
type Mongo struct {
	client   *mongo.Client
	tasks    *mongo.Collection
	events   *mongo.Collection
	counters *mongo.Collection
}

// ConnectMongo dials uri, verifies the connection, and ensures indexes.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		database = "serenote"
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	m := NewMongo(client.Database(database))
	if err := m.ensureIndexes(dialCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

// NewMongo wraps an already connected database.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		client:   db.Client(),
		tasks:    db.Collection("tasks"),
		events:   db.Collection("events"),
		counters: db.Collection("counters"),
	}
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignee_ids", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("task indexes: %w", err)
	}
	_, err = m.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "message_id", Value: 1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("event indexes: %w", err)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) InsertTask(ctx context.Context, t domain.Task) error {
	if t.AssigneeIDs == nil {
		t.AssigneeIDs = []string{}
	}
	if t.AssigneeRoleIDs == nil {
		t.AssigneeRoleIDs = []string{}
	}
	if _, err := m.tasks.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (m *Mongo) GetTask(ctx context.Context, messageID string) (domain.Task, error) {
	var t domain.Task
	err := m.tasks.FindOne(ctx, bson.M{"_id": messageID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (m *Mongo) SetTaskStatus(ctx context.Context, messageID string, status domain.Status, updatedAt string, completedAt *string) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": updatedAt}}
	if completedAt != nil {
		update["$set"].(bson.M)["completed_at"] = *completedAt
	} else {
		update["$unset"] = bson.M{"completed_at": ""}
	}
	res, err := m.tasks.UpdateOne(ctx, bson.M{"_id": messageID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) DeleteTask(ctx context.Context, messageID string) error {
	res, err := m.tasks.DeleteOne(ctx, bson.M{"_id": messageID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	filter := bson.M{}
	if f.AssigneeID != "" {
		filter["assignee_ids"] = f.AssigneeID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := m.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var res []domain.Task
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// nextEventID allocates a monotonic event id from the counters collection.
func (m *Mongo) nextEventID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx, bson.M{"_id": "events"}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("allocate event id: %w", err)
	}
	return doc.Seq, nil
}

func (m *Mongo) AppendEvent(ctx context.Context, e domain.Event) (int64, error) {
	id, err := m.nextEventID(ctx)
	if err != nil {
		return 0, err
	}
	e.ID = id
	if _, err := m.events.InsertOne(ctx, e); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *Mongo) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	filter := bson.M{}
	if f.MessageID != "" {
		filter["message_id"] = f.MessageID
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Cursor > 0 {
		filter["_id"] = bson.M{"$lt": f.Cursor}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	return m.findEvents(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)))
}

func (m *Mongo) EventsAfter(ctx context.Context, cursor int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return m.findEvents(ctx, bson.M{"_id": bson.M{"$gt": cursor}}, opts)
}

func (m *Mongo) LatestEventID(ctx context.Context) (int64, error) {
	var e domain.Event
	err := m.events.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (m *Mongo) findEvents(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Event, error) {
	cur, err := m.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var res []domain.Event
	if err := cur.All(ctx, &res); err != nil {
		return nil, err
	}
	return res, nil
}
