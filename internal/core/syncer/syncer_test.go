package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/eventbus/testbus"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type onlineStub bool

func (o onlineStub) Online() bool { return bool(o) }

// reconcileStore is an in-memory task.Store tracking reconciliation calls.
type reconcileStore struct {
	mu      sync.Mutex
	tasks   map[string]task.Task
	failIDs map[string]error

	listCalls   int
	deleted     []string
	marked      []string
	deleteCalls map[string]int
}

func newReconcileStore(tasks ...task.Task) *reconcileStore {
	s := &reconcileStore{
		tasks:       make(map[string]task.Task),
		failIDs:     make(map[string]error),
		deleteCalls: make(map[string]int),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *reconcileStore) Insert(context.Context, task.Task) (string, error) { return "", nil }

func (s *reconcileStore) Get(_ context.Context, id string) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (s *reconcileStore) ListByUser(context.Context, string) ([]task.Task, error) { return nil, nil }

func (s *reconcileStore) ListByUserAndStatus(_ context.Context, userID string, statuses ...task.SyncStatus) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	var out []task.Task
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		for _, st := range statuses {
			if t.SyncStatus == st {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (s *reconcileStore) UpdateFields(_ context.Context, id string, p task.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failIDs[id]; err != nil {
		return err
	}
	t, ok := s.tasks[id]
	if !ok {
		return task.ErrNotFound
	}
	if p.SyncStatus != nil {
		t.SyncStatus = *p.SyncStatus
		if *p.SyncStatus == task.StatusSynced {
			s.marked = append(s.marked, id)
		}
	}
	if p.LastSynced != nil {
		t.LastSynced = p.LastSynced
	}
	s.tasks[id] = t
	return nil
}

func (s *reconcileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls[id]++
	if err := s.failIDs[id]; err != nil {
		return err
	}
	if _, ok := s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(s.tasks, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *reconcileStore) Subscribe(context.Context, string) (<-chan task.Snapshot, error) {
	return nil, errors.New("not supported")
}

func TestSync_ResolvesPendingAndDeletions(t *testing.T) {
	store := newReconcileStore(
		task.Task{ID: "p1", UserID: "u1", SyncStatus: task.StatusPending},
		task.Task{ID: "p2", UserID: "u1", SyncStatus: task.StatusPending},
		task.Task{ID: "d1", UserID: "u1", SyncStatus: task.StatusPendingDeletion},
		task.Task{ID: "ok", UserID: "u1", SyncStatus: task.StatusSynced},
		task.Task{ID: "other", UserID: "u2", SyncStatus: task.StatusPending},
	)
	bus := testbus.New(t)
	s := New(store, onlineStub(true), bus.EventBus, zerolog.Nop())

	result, err := s.Sync(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Deleted)
	assert.Zero(t, result.Failed)

	assert.ElementsMatch(t, []string{"p1", "p2"}, store.marked)
	assert.Equal(t, []string{"d1"}, store.deleted)

	got, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusSynced, got.SyncStatus)
	assert.NotNil(t, got.LastSynced)

	evt, ok := bus.WaitFor(t, eventbus.EventSyncCompleted, time.Second)
	require.True(t, ok)
	payload := evt.Payload.(eventbus.SyncCompletedPayload)
	assert.Equal(t, 2, payload.Synced)
	assert.Equal(t, 1, payload.Deleted)
}

func TestSync_OfflineIsNoOp(t *testing.T) {
	store := newReconcileStore(
		task.Task{ID: "p1", UserID: "u1", SyncStatus: task.StatusPending},
	)
	s := New(store, onlineStub(false), nil, zerolog.Nop())

	result, err := s.Sync(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, result.Synced)
	assert.Zero(t, store.listCalls, "offline sweeps never touch the store")
}

func TestSync_PartialFailureDoesNotAbort(t *testing.T) {
	store := newReconcileStore(
		task.Task{ID: "bad", UserID: "u1", SyncStatus: task.StatusPending},
		task.Task{ID: "good", UserID: "u1", SyncStatus: task.StatusPending},
		task.Task{ID: "del", UserID: "u1", SyncStatus: task.StatusPendingDeletion},
	)
	store.failIDs["bad"] = errors.New("write rejected")
	s := New(store, onlineStub(true), nil, zerolog.Nop())

	result, err := s.Sync(context.Background(), "u1")
	require.NoError(t, err, "per-task failures never fail the sweep")

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Failed)
	assert.Error(t, result.Err)
}

func TestSync_Idempotent(t *testing.T) {
	store := newReconcileStore(
		task.Task{ID: "p1", UserID: "u1", SyncStatus: task.StatusPending},
		task.Task{ID: "d1", UserID: "u1", SyncStatus: task.StatusPendingDeletion},
	)
	s := New(store, onlineStub(true), nil, zerolog.Nop())

	first, err := s.Sync(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Synced)
	assert.Equal(t, 1, first.Deleted)

	// A second sweep finds nothing left to do.
	second, err := s.Sync(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, second.Synced)
	assert.Zero(t, second.Deleted)
	assert.Zero(t, second.Failed)
}

func TestSync_DeleteOfMissingTaskTolerated(t *testing.T) {
	// The task was already removed remotely; a concurrent sweep got there
	// first. The delete must count as resolved, not failed.
	store := newReconcileStore(
		task.Task{ID: "d1", UserID: "u1", SyncStatus: task.StatusPendingDeletion},
	)
	store.failIDs["d1"] = task.ErrNotFound
	s := New(store, onlineStub(true), nil, zerolog.Nop())

	result, err := s.Sync(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, store.deleteCalls["d1"])
}
