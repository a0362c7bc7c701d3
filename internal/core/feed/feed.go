// Package feed maintains a live, user-scoped view of the task set, kept
// current via the store's push subscription.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/notify"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
)

// orderOverlay pins a task's order to a locally computed value until the
// corresponding remote write is confirmed. Without it a snapshot arriving
// between the optimistic reorder and the write's completion would snap the
// list back to the stale remote order.
type orderOverlay struct {
	order   int
	version uint64
}

// Feed republishes an ordered, in-memory task list from store snapshots.
// Every snapshot is a full replace: the current set is re-read and swapped
// in, sorted ascending by order. On subscription errors the feed keeps its
// last-known-good list and publishes a user-visible warning.
type Feed struct {
	store task.Store
	bus   *eventbus.EventBus
	log   zerolog.Logger

	mu       sync.RWMutex
	tasks    []task.Task
	loaded   bool
	version  uint64
	overlays map[string]orderOverlay

	updatesMu sync.Mutex
	updates   []chan []task.Task
}

// New creates a feed over the given store.
func New(store task.Store, bus *eventbus.EventBus, log zerolog.Logger) *Feed {
	return &Feed{
		store:    store,
		bus:      bus,
		log:      log.With().Str("component", "feed").Logger(),
		overlays: make(map[string]orderOverlay),
	}
}

// Run subscribes to the user's task set and consumes snapshots until ctx is
// cancelled. Call in a goroutine.
func (f *Feed) Run(ctx context.Context, userID string) error {
	ch, err := f.store.Subscribe(ctx, userID)
	if err != nil {
		return fmt.Errorf("subscribe to task feed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			f.apply(snap)
		}
	}
}

// Tasks returns the active view: the current list minus tasks awaiting
// confirmed deletion, sorted ascending by order.
func (f *Feed) Tasks() []task.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]task.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if t.SyncStatus == task.StatusPendingDeletion {
			continue
		}
		out = append(out, t)
	}
	return out
}

// All returns the full current list including pending-deletion tasks.
func (f *Feed) All() []task.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]task.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Loaded reports whether at least one snapshot has been applied.
func (f *Feed) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// OverlayOrder applies locally computed order values ahead of their remote
// writes. The list re-sorts immediately; snapshots keep honoring the
// overlaid values until ConfirmOrder is called for each task. Returns the
// overlay version to pass to ConfirmOrder.
func (f *Feed) OverlayOrder(orders map[string]int) uint64 {
	f.mu.Lock()
	f.version++
	version := f.version
	for id, order := range orders {
		f.overlays[id] = orderOverlay{order: order, version: version}
		for i := range f.tasks {
			if f.tasks[i].ID == id {
				f.tasks[i].Order = order
				break
			}
		}
	}
	Sort(f.tasks)
	f.mu.Unlock()

	f.emit()
	return version
}

// ConfirmOrder clears a task's order overlay once its remote write has been
// acknowledged. Overlays written by a newer reorder are left in place.
func (f *Feed) ConfirmOrder(taskID string, version uint64) {
	f.mu.Lock()
	if ov, ok := f.overlays[taskID]; ok && ov.version <= version {
		delete(f.overlays, taskID)
	}
	f.mu.Unlock()
}

// Updates returns a channel receiving the active task list after every
// change. The channel is closed when ctx is cancelled.
func (f *Feed) Updates(ctx context.Context) <-chan []task.Task {
	ch := make(chan []task.Task, 8)

	f.updatesMu.Lock()
	f.updates = append(f.updates, ch)
	f.updatesMu.Unlock()

	go func() {
		<-ctx.Done()
		// Removal and close stay under updatesMu, the same lock emit sends
		// under, so a send can never land on a closed channel.
		f.updatesMu.Lock()
		for i, sub := range f.updates {
			if sub == ch {
				f.updates = append(f.updates[:i], f.updates[i+1:]...)
				break
			}
		}
		close(ch)
		f.updatesMu.Unlock()
	}()

	return ch
}

func (f *Feed) apply(snap task.Snapshot) {
	if snap.Err != nil {
		f.log.Error().Err(snap.Err).Msg("task subscription error, keeping last known list")
		if f.bus != nil {
			f.bus.PublishNotificationPublished(eventbus.NotificationPublishedPayload{
				Level:   notify.LevelError,
				Message: "failed to load tasks",
			})
		}
		return
	}

	f.mu.Lock()
	tasks := make([]task.Task, len(snap.Tasks))
	copy(tasks, snap.Tasks)
	for i := range tasks {
		if ov, ok := f.overlays[tasks[i].ID]; ok {
			tasks[i].Order = ov.order
		}
	}
	Sort(tasks)
	f.tasks = tasks
	f.loaded = true
	f.mu.Unlock()

	f.emit()
}

func (f *Feed) emit() {
	active := f.Tasks()

	// Sends are non-blocking, so holding the lock across them is safe.
	f.updatesMu.Lock()
	defer f.updatesMu.Unlock()
	for _, ch := range f.updates {
		select {
		case ch <- active:
		default:
			f.log.Debug().Msg("feed update skipped: subscriber buffer full")
		}
	}
}

// Sort orders ascending by order value, breaking ties by creation time so
// tasks that have never been reordered keep their insertion sequence.
func Sort(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].EffectiveCreatedAt().Before(tasks[j].EffectiveCreatedAt())
	})
}
