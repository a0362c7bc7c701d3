// Package stores provides SQLite-backed implementations of the domain
// store interfaces.
package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/colonyops/taskdeck/pkg/randid"
	"github.com/rs/zerolog"
)

const taskColumns = `id, user_id, title, due_at, completed, subtasks, sort_order,
	sync_status, created_at, client_created_at, last_modified, last_synced`

const snapshotBuffer = 16

// TaskStore implements task.Store using SQLite. Mutations notify active
// subscriptions with a fresh full snapshot of the owner's task set, the
// local equivalent of a hosted store's push listener.
type TaskStore struct {
	db  *db.DB
	log zerolog.Logger

	mu   sync.Mutex
	subs map[string][]chan task.Snapshot // keyed by user id
}

var _ task.Store = (*TaskStore)(nil)

// NewTaskStore creates a new SQLite-backed task store.
func NewTaskStore(database *db.DB, log zerolog.Logger) *TaskStore {
	return &TaskStore{
		db:   database,
		log:  log.With().Str("component", "taskstore").Logger(),
		subs: make(map[string][]chan task.Snapshot),
	}
}

// Insert persists a new task. The store assigns the document id and the
// server creation timestamp.
func (s *TaskStore) Insert(ctx context.Context, t task.Task) (string, error) {
	if strings.TrimSpace(t.Title) == "" {
		return "", task.ErrEmptyTitle
	}

	if t.ID == "" || t.HasTempID() {
		t.ID = randid.Generate(20)
	}

	now := time.Now()
	t.CreatedAt = now
	if t.ClientCreatedAt.IsZero() {
		t.ClientCreatedAt = now
	}
	if t.LastModified.IsZero() {
		t.LastModified = now
	}
	if t.SyncStatus == "" {
		t.SyncStatus = task.StatusSynced
	}

	subtasksJSON, err := marshalSubtasks(t.Subtasks)
	if err != nil {
		return "", err
	}

	_, err = s.db.Conn().ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Title,
		timePtrToNull(t.Due),
		t.Completed,
		subtasksJSON,
		t.Order,
		string(t.SyncStatus),
		t.CreatedAt.UnixNano(),
		t.ClientCreatedAt.UnixNano(),
		t.LastModified.UnixNano(),
		timePtrToNull(t.LastSynced),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", fmt.Errorf("insert task: duplicate id %s", t.ID)
		}
		return "", fmt.Errorf("insert task: %w", err)
	}

	s.notify(t.UserID)
	return t.ID, nil
}

// Get returns a single task by id.
func (s *TaskStore) Get(ctx context.Context, id string) (task.Task, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if IsNotFoundError(err) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListByUser returns all tasks owned by userID.
func (s *TaskStore) ListByUser(ctx context.Context, userID string) ([]task.Task, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// ListByUserAndStatus returns the user's tasks whose sync status is one of
// the given statuses.
func (s *TaskStore) ListByUserAndStatus(ctx context.Context, userID string, statuses ...task.SyncStatus) ([]task.Task, error) {
	if len(statuses) == 0 {
		return []task.Task{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, 0, len(statuses)+1)
	args = append(args, userID)
	for _, st := range statuses {
		args = append(args, string(st))
	}

	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND sync_status IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// UpdateFields merges the non-nil patch fields into the task and stamps
// last_modified with the store's clock. The owner lookup and the update
// share one transaction.
func (s *TaskStore) UpdateFields(ctx context.Context, id string, p task.Patch) error {
	set := []string{"last_modified = ?"}
	args := []any{time.Now().UnixNano()}

	if p.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Due != nil {
		set = append(set, "due_at = ?")
		args = append(args, p.Due.UnixNano())
	} else if p.ClearDue {
		set = append(set, "due_at = NULL")
	}
	if p.Completed != nil {
		set = append(set, "completed = ?")
		args = append(args, *p.Completed)
	}
	if p.Subtasks != nil {
		subtasksJSON, err := marshalSubtasks(*p.Subtasks)
		if err != nil {
			return err
		}
		set = append(set, "subtasks = ?")
		args = append(args, subtasksJSON)
	}
	if p.Order != nil {
		set = append(set, "sort_order = ?")
		args = append(args, *p.Order)
	}
	if p.SyncStatus != nil {
		set = append(set, "sync_status = ?")
		args = append(args, string(*p.SyncStatus))
	}
	if p.LastSynced != nil {
		set = append(set, "last_synced = ?")
		args = append(args, p.LastSynced.UnixNano())
	}

	args = append(args, id)

	var userID string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		userID, err = ownerOf(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(userID)
	return nil
}

// Delete removes a task by id. The owner lookup and the delete share one
// transaction.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	var userID string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		userID, err = ownerOf(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(userID)
	return nil
}

// Subscribe returns a snapshot channel for the user's task set. An initial
// snapshot is delivered immediately; one follows every mutation to any of
// the user's tasks. The channel is closed when ctx is cancelled.
func (s *TaskStore) Subscribe(ctx context.Context, userID string) (<-chan task.Snapshot, error) {
	ch := make(chan task.Snapshot, snapshotBuffer)

	s.mu.Lock()
	s.subs[userID] = append(s.subs[userID], ch)
	s.mu.Unlock()

	ch <- s.snapshot(ctx, userID)

	go func() {
		<-ctx.Done()
		// Removal and close stay under mu, the lock notify sends under, so
		// a snapshot can never land on a closed channel.
		s.mu.Lock()
		subs := s.subs[userID]
		for i, sub := range subs {
			if sub == ch {
				s.subs[userID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// ownerOf returns the owning user of a task, or task.ErrNotFound.
func ownerOf(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	var userID string
	err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM tasks WHERE id = ?`, id).Scan(&userID)
	if IsNotFoundError(err) {
		return "", task.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup task owner: %w", err)
	}
	return userID, nil
}

// notify pushes a fresh snapshot to every subscriber of the user. Slow
// subscribers with a full buffer are skipped; they catch up on the next
// mutation.
func (s *TaskStore) notify(userID string) {
	s.mu.Lock()
	n := len(s.subs[userID])
	s.mu.Unlock()
	if n == 0 {
		return
	}

	// The snapshot query runs outside the lock; sends are non-blocking, so
	// holding the lock across them is safe.
	snap := s.snapshot(context.Background(), userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[userID] {
		select {
		case ch <- snap:
		default:
			s.log.Warn().Str("user_id", userID).Msg("subscriber buffer full, snapshot skipped")
		}
	}
}

func (s *TaskStore) snapshot(ctx context.Context, userID string) task.Snapshot {
	tasks, err := s.ListByUser(ctx, userID)
	if err != nil {
		return task.Snapshot{Err: err}
	}
	return task.Snapshot{Tasks: tasks}
}

func collectTasks(rows *sql.Rows) ([]task.Task, error) {
	tasks := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (task.Task, error) {
	var (
		t               task.Task
		dueAt           sql.NullInt64
		subtasksJSON    sql.NullString
		syncStatus      string
		createdAt       int64
		clientCreatedAt int64
		lastModified    int64
		lastSynced      sql.NullInt64
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&dueAt,
		&t.Completed,
		&subtasksJSON,
		&t.Order,
		&syncStatus,
		&createdAt,
		&clientCreatedAt,
		&lastModified,
		&lastSynced,
	)
	if err != nil {
		return task.Task{}, err
	}

	t.SyncStatus = task.SyncStatus(syncStatus)
	t.CreatedAt = time.Unix(0, createdAt)
	t.ClientCreatedAt = time.Unix(0, clientCreatedAt)
	t.LastModified = time.Unix(0, lastModified)
	if dueAt.Valid {
		due := time.Unix(0, dueAt.Int64)
		t.Due = &due
	}
	if lastSynced.Valid {
		synced := time.Unix(0, lastSynced.Int64)
		t.LastSynced = &synced
	}
	if subtasksJSON.Valid && subtasksJSON.String != "" {
		if err := json.Unmarshal([]byte(subtasksJSON.String), &t.Subtasks); err != nil {
			return task.Task{}, fmt.Errorf("unmarshal subtasks: %w", err)
		}
	}

	return t, nil
}

func marshalSubtasks(subtasks []task.Subtask) (sql.NullString, error) {
	if len(subtasks) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(subtasks)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal subtasks: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func timePtrToNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
