package eventbus

import (
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/notify"
)

// NotificationRouter maps domain events to user-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeConnectivityChanged(func(p ConnectivityChangedPayload) {
		if p.Online {
			r.notifyf(notify.LevelInfo, "back online")
			return
		}
		r.notifyf(notify.LevelWarning, "you are offline")
	})

	r.bus.SubscribeSyncCompleted(func(p SyncCompletedPayload) {
		if p.Failed > 0 {
			r.notifyf(notify.LevelWarning, "sync finished with %d failure(s)", p.Failed)
			return
		}
		if p.Synced > 0 || p.Deleted > 0 {
			r.notifyf(notify.LevelInfo, "synced %d task(s), deleted %d", p.Synced, p.Deleted)
		}
	})

	r.bus.SubscribeOrderDropped(func(p OrderDroppedPayload) {
		r.notifyf(notify.LevelWarning, "order update for task %s dropped after %d attempts", p.TaskID, p.Attempts)
	})

	r.bus.SubscribeTaskDeleted(func(p TaskDeletedPayload) {
		if p.Deferred {
			r.notifyf(notify.LevelInfo, "task %s will be deleted when back online", p.TaskID)
		}
	})
}

func (r *NotificationRouter) notifyf(level notify.Level, format string, args ...any) {
	r.bus.PublishNotificationPublished(NotificationPublishedPayload{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}
