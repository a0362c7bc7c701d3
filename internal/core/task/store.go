package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a task does not exist in the store.
	ErrNotFound = errors.New("task not found")
	// ErrEmptyTitle is returned when a task is created without a title.
	ErrEmptyTitle = errors.New("task title must not be empty")
)

// Patch describes a partial update to a task document. Nil fields are left
// untouched. The store stamps LastModified on every applied patch.
type Patch struct {
	Title      *string
	Due        *time.Time
	ClearDue   bool
	Completed  *bool
	Subtasks   *[]Subtask
	Order      *int
	SyncStatus *SyncStatus
	LastSynced *time.Time
}

// IsZero reports whether the patch would change nothing.
func (p Patch) IsZero() bool {
	return p.Title == nil && p.Due == nil && !p.ClearDue && p.Completed == nil &&
		p.Subtasks == nil && p.Order == nil && p.SyncStatus == nil && p.LastSynced == nil
}

// Snapshot is one delivery from a store subscription: the full current set
// of the user's tasks, or a subscription error. After an error delivery the
// subscription stays open and later snapshots may still arrive.
type Snapshot struct {
	Tasks []Task
	Err   error
}

// Store is the document store capability consumed by taskdeck. Both the
// SQLite and MongoDB backends implement it, and tests substitute fakes.
type Store interface {
	// Insert persists a new task and returns the store-assigned id.
	// CreatedAt is stamped by the store.
	Insert(ctx context.Context, t Task) (string, error)

	// Get returns a single task by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (Task, error)

	// ListByUser returns all tasks owned by userID, in no particular order.
	ListByUser(ctx context.Context, userID string) ([]Task, error)

	// ListByUserAndStatus returns the user's tasks whose sync status is one
	// of the given statuses (field-membership query).
	ListByUserAndStatus(ctx context.Context, userID string, statuses ...SyncStatus) ([]Task, error)

	// UpdateFields merges the non-nil patch fields into the task and stamps
	// LastModified. Returns ErrNotFound if the task does not exist.
	UpdateFields(ctx context.Context, id string, p Patch) error

	// Delete removes a task by id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Subscribe returns a channel of snapshots for the user's task set. An
	// initial snapshot is delivered promptly, then one per remote change.
	// The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, userID string) (<-chan Snapshot, error)
}
