package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/eventbus/testbus"
	"github.com/colonyops/taskdeck/internal/core/reorder"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotStore is a task.Store stub whose subscription is driven by the
// test pushing snapshots.
type snapshotStore struct {
	snapshots chan task.Snapshot
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{snapshots: make(chan task.Snapshot, 8)}
}

func (s *snapshotStore) push(tasks ...task.Task) {
	s.snapshots <- task.Snapshot{Tasks: tasks}
}

func (s *snapshotStore) pushErr(err error) {
	s.snapshots <- task.Snapshot{Err: err}
}

func (s *snapshotStore) Insert(context.Context, task.Task) (string, error) { return "", nil }
func (s *snapshotStore) Get(context.Context, string) (task.Task, error) {
	return task.Task{}, task.ErrNotFound
}
func (s *snapshotStore) ListByUser(context.Context, string) ([]task.Task, error) { return nil, nil }
func (s *snapshotStore) ListByUserAndStatus(context.Context, string, ...task.SyncStatus) ([]task.Task, error) {
	return nil, nil
}
func (s *snapshotStore) UpdateFields(context.Context, string, task.Patch) error { return nil }
func (s *snapshotStore) Delete(context.Context, string) error                   { return nil }

func (s *snapshotStore) Subscribe(ctx context.Context, _ string) (<-chan task.Snapshot, error) {
	out := make(chan task.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-s.snapshots:
				out <- snap
			}
		}
	}()
	return out, nil
}

func startFeed(t *testing.T, store *snapshotStore, bus *eventbus.EventBus) *Feed {
	t.Helper()

	f := New(store, bus, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = f.Run(ctx, "u1") }()
	return f
}

func waitLoaded(t *testing.T, f *Feed) {
	t.Helper()
	require.Eventually(t, f.Loaded, time.Second, 5*time.Millisecond)
}

func TestFeed_SnapshotReplacesList(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	store.push(
		task.Task{ID: "b", Order: 1},
		task.Task{ID: "a", Order: 0},
	)
	waitLoaded(t, f)

	tasks := f.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID, "sorted ascending by order")
	assert.Equal(t, "b", tasks[1].ID)

	// Next snapshot is a full replace, not a merge.
	store.push(task.Task{ID: "c", Order: 0})
	require.Eventually(t, func() bool {
		return len(f.Tasks()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "c", f.Tasks()[0].ID)
}

func TestFeed_PendingDeletionHidden(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	store.push(
		task.Task{ID: "keep", Order: 0, SyncStatus: task.StatusSynced},
		task.Task{ID: "gone", Order: 1, SyncStatus: task.StatusPendingDeletion},
	)
	waitLoaded(t, f)

	tasks := f.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "keep", tasks[0].ID)

	assert.Len(t, f.All(), 2, "All still exposes the marked task")
}

func TestFeed_ErrorKeepsLastKnownGood(t *testing.T) {
	store := newSnapshotStore()
	bus := testbus.New(t)
	f := startFeed(t, store, bus.EventBus)

	store.push(task.Task{ID: "a", Order: 0})
	waitLoaded(t, f)

	store.pushErr(errors.New("stream interrupted"))

	_, ok := bus.WaitFor(t, eventbus.EventNotificationPublished, time.Second)
	require.True(t, ok, "subscription errors surface as a notification")

	tasks := f.Tasks()
	require.Len(t, tasks, 1, "list survives the failed load")
	assert.Equal(t, "a", tasks[0].ID)
}

func TestFeed_OverlayShadowsStaleSnapshots(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	store.push(
		task.Task{ID: "a", Order: 0},
		task.Task{ID: "b", Order: 1},
	)
	waitLoaded(t, f)

	version := f.OverlayOrder(map[string]int{"a": 1, "b": 0})

	tasks := f.Tasks()
	assert.Equal(t, "b", tasks[0].ID, "overlay reorders immediately")

	// A snapshot still carrying the pre-reorder values must not snap back.
	store.push(
		task.Task{ID: "a", Order: 0},
		task.Task{ID: "b", Order: 1},
	)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "b", f.Tasks()[0].ID, "stale snapshot is shadowed by the overlay")

	// Once confirmed, remote values win again.
	f.ConfirmOrder("a", version)
	f.ConfirmOrder("b", version)
	store.push(
		task.Task{ID: "a", Order: 0},
		task.Task{ID: "b", Order: 1},
	)
	require.Eventually(t, func() bool {
		return f.Tasks()[0].ID == "a"
	}, time.Second, 5*time.Millisecond)
}

func TestFeed_ConfirmOrderIgnoresOlderVersion(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	store.push(
		task.Task{ID: "a", Order: 0},
		task.Task{ID: "b", Order: 1},
	)
	waitLoaded(t, f)

	v1 := f.OverlayOrder(map[string]int{"a": 1, "b": 0})
	_ = f.OverlayOrder(map[string]int{"a": 0, "b": 1}) // newer reorder

	// Confirming the first write must not clear the newer overlay.
	f.ConfirmOrder("a", v1)

	store.push(
		task.Task{ID: "a", Order: 5},
		task.Task{ID: "b", Order: 6},
	)
	require.Eventually(t, func() bool {
		tasks := f.Tasks()
		return len(tasks) == 2 && tasks[0].ID == "a" && tasks[0].Order == 0
	}, time.Second, 5*time.Millisecond)
}

func TestFeed_UpdatesChannel(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := f.Updates(ctx)

	store.push(task.Task{ID: "a", Order: 0})

	select {
	case tasks := <-updates:
		require.Len(t, tasks, 1)
		assert.Equal(t, "a", tasks[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-updates
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestFeed_UpdatesChurnDuringEmit(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	store.push(task.Task{ID: "a", Order: 0})
	waitLoaded(t, f)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			f.OverlayOrder(map[string]int{"a": i})
		}
	}()

	// Subscribers come and go while emits are in flight; a departing
	// subscriber must never receive a send on its closed channel.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_ = f.Updates(ctx)
		cancel()
	}
	<-done
}

// stalledPatcher rejects every order write.
type stalledPatcher struct{}

func (stalledPatcher) UpdateFields(context.Context, string, task.Patch) error {
	return errors.New("store unavailable")
}

func TestFeed_DroppedOrderWriteRestoresRemoteOrder(t *testing.T) {
	store := newSnapshotStore()
	f := startFeed(t, store, nil)

	store.push(
		task.Task{ID: "a", Order: 0},
		task.Task{ID: "b", Order: 1},
	)
	waitLoaded(t, f)

	version := f.OverlayOrder(map[string]int{"a": 1, "b": 0})
	require.Equal(t, "b", f.Tasks()[0].ID, "overlay reorders immediately")

	// No worker runs, so filling the queue makes the following enqueues
	// drop straight away, as if their retries had been exhausted.
	outbox := reorder.NewOutbox(stalledPatcher{}, f, nil, zerolog.Nop())
	for i := 0; i < 300; i++ {
		outbox.Enqueue(map[string]int{"filler": i}, version)
	}
	outbox.Enqueue(map[string]int{"a": 1}, version)
	outbox.Enqueue(map[string]int{"b": 0}, version)

	// The drop released the overlays, so the next snapshot wins again.
	store.push(
		task.Task{ID: "a", Order: 0},
		task.Task{ID: "b", Order: 1},
	)
	require.Eventually(t, func() bool {
		return f.Tasks()[0].ID == "a"
	}, time.Second, 5*time.Millisecond,
		"feed refresh restores remote order after the write was dropped")
}

func TestSort_TieBreaksOnCreation(t *testing.T) {
	earlier := time.Now().Add(-time.Hour)
	later := time.Now()

	tasks := []task.Task{
		{ID: "young", Order: 0, CreatedAt: later},
		{ID: "old", Order: 0, CreatedAt: earlier},
		{ID: "first", Order: -1},
	}
	Sort(tasks)

	assert.Equal(t, "first", tasks[0].ID)
	assert.Equal(t, "old", tasks[1].ID)
	assert.Equal(t, "young", tasks[2].ID)
}
