// Package task defines the task domain model and the document store
// capability interface the rest of taskdeck is built against.
package task

import (
	"strings"
	"time"
)

// TempIDPrefix marks locally generated ids for tasks whose remote insert
// has not been confirmed. The authoritative id arrives via the feed.
const TempIDPrefix = "temp_"

// SyncStatus represents the sync lifecycle state of a task.
type SyncStatus string

const (
	// StatusSynced means the last known local state matches the remote store.
	StatusSynced SyncStatus = "synced"
	// StatusPending means the task awaits re-synchronization once online.
	StatusPending SyncStatus = "pending"
	// StatusPendingDeletion means the task awaits confirmed remote deletion.
	StatusPendingDeletion SyncStatus = "pending-deletion"
)

// Subtask is a checklist entry owned by its parent task. Subtasks have no
// independent lifecycle and are persisted inside the parent document.
type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is a single user-owned task document.
type Task struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Due       *time.Time `json:"due,omitempty"`
	Completed bool       `json:"completed"`
	Subtasks  []Subtask  `json:"subtasks,omitempty"`
	Order     int        `json:"order"`

	SyncStatus SyncStatus `json:"sync_status"`

	// CreatedAt is the server-assigned creation timestamp. ClientCreatedAt
	// is observed locally at create time so the task can be rendered and
	// ordered before the authoritative value round-trips.
	CreatedAt       time.Time  `json:"created_at"`
	ClientCreatedAt time.Time  `json:"client_created_at"`
	LastModified    time.Time  `json:"last_modified"`
	LastSynced      *time.Time `json:"last_synced,omitempty"`
}

// HasTempID reports whether the task still carries an unconfirmed local id.
func (t Task) HasTempID() bool {
	return strings.HasPrefix(t.ID, TempIDPrefix)
}

// EffectiveCreatedAt prefers the server timestamp, falling back to the
// client-observed one while the server value has not arrived yet.
func (t Task) EffectiveCreatedAt() time.Time {
	if !t.CreatedAt.IsZero() {
		return t.CreatedAt
	}
	return t.ClientCreatedAt
}

// Draft holds the user-provided fields for a new task.
type Draft struct {
	Title    string
	Due      *time.Time
	Subtasks []Subtask
}
