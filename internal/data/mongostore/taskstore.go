// Package mongostore implements the task document store against MongoDB,
// the hosted-backend role. Push subscriptions ride on change streams.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	connectTimeout  = 10 * time.Second
	watchRetryWait  = 2 * time.Second
	snapshotBuffer  = 16
	statusFieldName = "sync_status"
)

// TaskStore implements task.Store using a MongoDB collection.
type TaskStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    zerolog.Logger
}

var _ task.Store = (*TaskStore)(nil)

// New connects to MongoDB and returns a store bound to the given database
// and collection.
func New(ctx context.Context, uri, database, collection string, log zerolog.Logger) (*TaskStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &TaskStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		log:    log.With().Str("component", "mongostore").Logger(),
	}, nil
}

// Close disconnects the underlying client.
func (s *TaskStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type subtaskDoc struct {
	ID        string `bson:"id"`
	Text      string `bson:"text"`
	Completed bool   `bson:"completed"`
}

type taskDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          string             `bson:"user_id"`
	Title           string             `bson:"title"`
	DueAt           *time.Time         `bson:"due_at,omitempty"`
	Completed       bool               `bson:"completed"`
	Subtasks        []subtaskDoc       `bson:"subtasks,omitempty"`
	Order           int                `bson:"sort_order"`
	SyncStatus      string             `bson:"sync_status"`
	CreatedAt       time.Time          `bson:"created_at"`
	ClientCreatedAt time.Time          `bson:"client_created_at"`
	LastModified    time.Time          `bson:"last_modified"`
	LastSynced      *time.Time         `bson:"last_synced,omitempty"`
}

// Insert persists a new task. Mongo assigns the document id; the server
// creation timestamp is stamped here.
func (s *TaskStore) Insert(ctx context.Context, t task.Task) (string, error) {
	if strings.TrimSpace(t.Title) == "" {
		return "", task.ErrEmptyTitle
	}

	now := time.Now()
	doc := toDoc(t)
	doc.ID = primitive.NilObjectID
	doc.CreatedAt = now
	if doc.ClientCreatedAt.IsZero() {
		doc.ClientCreatedAt = now
	}
	if doc.LastModified.IsZero() {
		doc.LastModified = now
	}
	if doc.SyncStatus == "" {
		doc.SyncStatus = string(task.StatusSynced)
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert task: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// Get returns a single task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return task.Task{}, task.ErrNotFound
	}

	var doc taskDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	return fromDoc(doc), nil
}

// ListByUser returns all tasks owned by userID.
func (s *TaskStore) ListByUser(ctx context.Context, userID string) ([]task.Task, error) {
	return s.list(ctx, bson.M{"user_id": userID})
}

// ListByUserAndStatus returns the user's tasks whose sync status is one of
// the given statuses.
func (s *TaskStore) ListByUserAndStatus(ctx context.Context, userID string, statuses ...task.SyncStatus) ([]task.Task, error) {
	if len(statuses) == 0 {
		return []task.Task{}, nil
	}
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	return s.list(ctx, bson.M{
		"user_id":       userID,
		statusFieldName: bson.M{"$in": values},
	})
}

func (s *TaskStore) list(ctx context.Context, filter bson.M) ([]task.Task, error) {
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	tasks := make([]task.Task, 0)
	for cur.Next(ctx) {
		var doc taskDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, fromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// UpdateFields merges the non-nil patch fields into the document and stamps
// last_modified.
func (s *TaskStore) UpdateFields(ctx context.Context, id string, p task.Patch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return task.ErrNotFound
	}

	set := bson.M{"last_modified": time.Now()}
	unset := bson.M{}

	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Due != nil {
		set["due_at"] = *p.Due
	} else if p.ClearDue {
		unset["due_at"] = ""
	}
	if p.Completed != nil {
		set["completed"] = *p.Completed
	}
	if p.Subtasks != nil {
		docs := make([]subtaskDoc, len(*p.Subtasks))
		for i, st := range *p.Subtasks {
			docs[i] = subtaskDoc(st)
		}
		set["subtasks"] = docs
	}
	if p.Order != nil {
		set["sort_order"] = *p.Order
	}
	if p.SyncStatus != nil {
		set[statusFieldName] = string(*p.SyncStatus)
	}
	if p.LastSynced != nil {
		set["last_synced"] = *p.LastSynced
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Delete removes a task by id.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return task.ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Subscribe opens a change stream scoped to the user's documents and
// delivers a fresh full snapshot on every change. The stream is re-opened
// after transient errors; each failure is also surfaced as a snapshot
// carrying the error so the feed can warn the user.
func (s *TaskStore) Subscribe(ctx context.Context, userID string) (<-chan task.Snapshot, error) {
	ch := make(chan task.Snapshot, snapshotBuffer)

	go func() {
		defer close(ch)

		s.deliver(ctx, ch, userID)

		for {
			if ctx.Err() != nil {
				return
			}
			if err := s.watch(ctx, ch, userID); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Str("user_id", userID).Msg("change stream interrupted")
				select {
				case ch <- task.Snapshot{Err: err}:
				default:
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(watchRetryWait):
				}
			}
		}
	}()

	return ch, nil
}

func (s *TaskStore) watch(ctx context.Context, ch chan<- task.Snapshot, userID string) error {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "fullDocument.user_id", Value: userID}},
				bson.D{{Key: "operationType", Value: "delete"}},
			}},
		}}},
	}

	stream, err := s.coll.Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer func() { _ = stream.Close(context.Background()) }()

	for stream.Next(ctx) {
		s.deliver(ctx, ch, userID)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}

func (s *TaskStore) deliver(ctx context.Context, ch chan<- task.Snapshot, userID string) {
	tasks, err := s.ListByUser(ctx, userID)
	snap := task.Snapshot{Tasks: tasks}
	if err != nil {
		snap = task.Snapshot{Err: err}
	}
	select {
	case ch <- snap:
	case <-ctx.Done():
	default:
	}
}

func toDoc(t task.Task) taskDoc {
	doc := taskDoc{
		UserID:          t.UserID,
		Title:           t.Title,
		DueAt:           t.Due,
		Completed:       t.Completed,
		Order:           t.Order,
		SyncStatus:      string(t.SyncStatus),
		CreatedAt:       t.CreatedAt,
		ClientCreatedAt: t.ClientCreatedAt,
		LastModified:    t.LastModified,
		LastSynced:      t.LastSynced,
	}
	if len(t.Subtasks) > 0 {
		doc.Subtasks = make([]subtaskDoc, len(t.Subtasks))
		for i, st := range t.Subtasks {
			doc.Subtasks[i] = subtaskDoc(st)
		}
	}
	return doc
}

func fromDoc(doc taskDoc) task.Task {
	t := task.Task{
		ID:              doc.ID.Hex(),
		UserID:          doc.UserID,
		Title:           doc.Title,
		Due:             doc.DueAt,
		Completed:       doc.Completed,
		Order:           doc.Order,
		SyncStatus:      task.SyncStatus(doc.SyncStatus),
		CreatedAt:       doc.CreatedAt,
		ClientCreatedAt: doc.ClientCreatedAt,
		LastModified:    doc.LastModified,
		LastSynced:      doc.LastSynced,
	}
	if len(doc.Subtasks) > 0 {
		t.Subtasks = make([]task.Subtask, len(doc.Subtasks))
		for i, st := range doc.Subtasks {
			t.Subtasks[i] = task.Subtask(st)
		}
	}
	return t
}
