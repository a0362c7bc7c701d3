package eventbus

import (
	"context"
	"sync"
)

// envelope pairs an event name with its payload for the dispatch channel.
type envelope struct {
	event   Event
	payload any
}

// EventBus is a typed publish/subscribe bus. Publishing never blocks: if
// the buffer is full the event is dropped and the OnDrop hooks fire.
// Subscribers run sequentially on the Start goroutine.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu          sync.RWMutex
	subscribers map[Event][]func(any)
}

// New creates an event bus with the given channel buffer size.
func New(buffer int) *EventBus {
	return &EventBus{
		ch:          make(chan envelope, buffer),
		subscribers: make(map[Event][]func(any)),
	}
}

// Start runs the dispatch loop until ctx is cancelled. Call in a goroutine.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]func(any), len(bus.subscribers[env.event]))
	copy(subs, bus.subscribers[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subscribers[event] = append(bus.subscribers[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

// Typed publish/subscribe pairs. One pair per event in events.go.

// PublishConnectivityChanged publishes a connectivity.changed event.
func (bus *EventBus) PublishConnectivityChanged(p ConnectivityChangedPayload) {
	bus.send(EventConnectivityChanged, p)
}

// SubscribeConnectivityChanged registers a handler for connectivity.changed.
func (bus *EventBus) SubscribeConnectivityChanged(fn func(ConnectivityChangedPayload)) {
	bus.subscribe(EventConnectivityChanged, func(v any) {
		if p, ok := v.(ConnectivityChangedPayload); ok {
			fn(p)
		}
	})
}

// PublishTaskCreated publishes a task.created event.
func (bus *EventBus) PublishTaskCreated(p TaskCreatedPayload) {
	bus.send(EventTaskCreated, p)
}

// SubscribeTaskCreated registers a handler for task.created.
func (bus *EventBus) SubscribeTaskCreated(fn func(TaskCreatedPayload)) {
	bus.subscribe(EventTaskCreated, func(v any) {
		if p, ok := v.(TaskCreatedPayload); ok {
			fn(p)
		}
	})
}

// PublishTaskDeleted publishes a task.deleted event.
func (bus *EventBus) PublishTaskDeleted(p TaskDeletedPayload) {
	bus.send(EventTaskDeleted, p)
}

// SubscribeTaskDeleted registers a handler for task.deleted.
func (bus *EventBus) SubscribeTaskDeleted(fn func(TaskDeletedPayload)) {
	bus.subscribe(EventTaskDeleted, func(v any) {
		if p, ok := v.(TaskDeletedPayload); ok {
			fn(p)
		}
	})
}

// PublishSyncCompleted publishes a sync.completed event.
func (bus *EventBus) PublishSyncCompleted(p SyncCompletedPayload) {
	bus.send(EventSyncCompleted, p)
}

// SubscribeSyncCompleted registers a handler for sync.completed.
func (bus *EventBus) SubscribeSyncCompleted(fn func(SyncCompletedPayload)) {
	bus.subscribe(EventSyncCompleted, func(v any) {
		if p, ok := v.(SyncCompletedPayload); ok {
			fn(p)
		}
	})
}

// PublishOrderDropped publishes an order.dropped event.
func (bus *EventBus) PublishOrderDropped(p OrderDroppedPayload) {
	bus.send(EventOrderDropped, p)
}

// SubscribeOrderDropped registers a handler for order.dropped.
func (bus *EventBus) SubscribeOrderDropped(fn func(OrderDroppedPayload)) {
	bus.subscribe(EventOrderDropped, func(v any) {
		if p, ok := v.(OrderDroppedPayload); ok {
			fn(p)
		}
	})
}

// PublishNotificationPublished publishes a notification.published event.
func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

// SubscribeNotificationPublished registers a handler for notification.published.
func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) {
	bus.subscribe(EventNotificationPublished, func(v any) {
		if p, ok := v.(NotificationPublishedPayload); ok {
			fn(p)
		}
	})
}
