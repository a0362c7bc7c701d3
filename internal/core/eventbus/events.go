// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within taskdeck.
package eventbus

import (
	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/colonyops/taskdeck/internal/core/task"
)

// Event names a bus event type.
type Event string

// All bus events. Keep list sorted A-Z.
const (
	EventConnectivityChanged   Event = "connectivity.changed"
	EventNotificationPublished Event = "notification.published"
	EventOrderDropped          Event = "order.dropped"
	EventSyncCompleted         Event = "sync.completed"
	EventTaskCreated           Event = "task.created"
	EventTaskDeleted           Event = "task.deleted"
)

// ConnectivityChangedPayload is emitted on every online/offline transition.
type ConnectivityChangedPayload struct {
	Online bool
}

// TaskCreatedPayload is emitted when a new task is created locally.
type TaskCreatedPayload struct {
	Task *task.Task
}

// TaskDeletedPayload is emitted when a task is deleted or marked for
// deferred deletion.
type TaskDeletedPayload struct {
	TaskID string
	// Deferred is true when the delete was downgraded to pending-deletion
	// because the client was offline.
	Deferred bool
}

// SyncCompletedPayload is emitted after a reconciliation sweep settles.
type SyncCompletedPayload struct {
	Synced  int
	Deleted int
	Failed  int
}

// OrderDroppedPayload is emitted when the reorder outbox gives up on an
// order write after exhausting its retries.
type OrderDroppedPayload struct {
	TaskID   string
	Order    int
	Attempts int
}

// NotificationPublishedPayload carries a user-visible notification.
type NotificationPublishedPayload struct {
	Level   notify.Level
	Message string
}
