package stores

import (
	"context"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *TaskStore {
	t.Helper()

	database, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return NewTaskStore(database, zerolog.Nop())
}

func TestTaskStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	due := time.Now().Add(24 * time.Hour).Truncate(time.Millisecond)
	id, err := store.Insert(ctx, task.Task{
		UserID: "u1",
		Title:  "water the plants",
		Due:    &due,
		Subtasks: []task.Subtask{
			{ID: "s1", Text: "fill the can"},
		},
		SyncStatus: task.StatusPending,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "water the plants", got.Title)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, task.StatusPending, got.SyncStatus)
	require.NotNil(t, got.Due)
	assert.True(t, got.Due.Equal(due))
	require.Len(t, got.Subtasks, 1)
	assert.Equal(t, "fill the can", got.Subtasks[0].Text)
	assert.False(t, got.CreatedAt.IsZero(), "store stamps the creation time")
	assert.Nil(t, got.LastSynced)
}

func TestTaskStore_InsertValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, task.Task{UserID: "u1", Title: "  "})
	assert.ErrorIs(t, err, task.ErrEmptyTitle)
}

func TestTaskStore_InsertReplacesTempID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, task.Task{
		ID:     task.TempIDPrefix + "abc123",
		UserID: "u1",
		Title:  "temp",
	})
	require.NoError(t, err)
	assert.False(t, task.Task{ID: id}.HasTempID(), "store assigns an authoritative id")
}

func TestTaskStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestTaskStore_ListByUserAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustInsert := func(title string, status task.SyncStatus, userID string) string {
		id, err := store.Insert(ctx, task.Task{UserID: userID, Title: title, SyncStatus: status})
		require.NoError(t, err)
		return id
	}

	p1 := mustInsert("one", task.StatusPending, "u1")
	d1 := mustInsert("two", task.StatusPendingDeletion, "u1")
	mustInsert("three", task.StatusSynced, "u1")
	mustInsert("four", task.StatusPending, "u2")

	got, err := store.ListByUserAndStatus(ctx, "u1", task.StatusPending, task.StatusPendingDeletion)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, tk := range got {
		ids = append(ids, tk.ID)
	}
	assert.ElementsMatch(t, []string{p1, d1}, ids)

	t.Run("no statuses returns empty", func(t *testing.T) {
		got, err := store.ListByUserAndStatus(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestTaskStore_UpdateFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, task.Task{UserID: "u1", Title: "before"})
	require.NoError(t, err)
	inserted, err := store.Get(ctx, id)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond) // ensure last_modified moves

	title := "after"
	completed := true
	order := 4
	status := task.StatusPending
	err = store.UpdateFields(ctx, id, task.Patch{
		Title:      &title,
		Completed:  &completed,
		Order:      &order,
		SyncStatus: &status,
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.True(t, got.Completed)
	assert.Equal(t, 4, got.Order)
	assert.Equal(t, task.StatusPending, got.SyncStatus)
	assert.True(t, got.LastModified.After(inserted.LastModified), "patches stamp last_modified")

	t.Run("clear due date", func(t *testing.T) {
		due := time.Now()
		require.NoError(t, store.UpdateFields(ctx, id, task.Patch{Due: &due}))
		require.NoError(t, store.UpdateFields(ctx, id, task.Patch{ClearDue: true}))

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.Due)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := store.UpdateFields(ctx, "missing", task.Patch{Title: &title})
		assert.ErrorIs(t, err, task.ErrNotFound)
	})
}

func TestTaskStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, task.Task{UserID: "u1", Title: "gone soon"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, task.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, id), task.ErrNotFound)
}

func TestTaskStore_SubscribePushesSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.Insert(ctx, task.Task{UserID: "u1", Title: "existing"})
	require.NoError(t, err)

	ch, err := store.Subscribe(ctx, "u1")
	require.NoError(t, err)

	// Initial snapshot carries the current set.
	select {
	case snap := <-ch:
		require.NoError(t, snap.Err)
		require.Len(t, snap.Tasks, 1)
		assert.Equal(t, "existing", snap.Tasks[0].Title)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	// Mutations push fresh full snapshots.
	_, err = store.Insert(ctx, task.Task{UserID: "u1", Title: "new"})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.NoError(t, snap.Err)
		assert.Len(t, snap.Tasks, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after insert")
	}

	// Mutations for other users stay silent.
	_, err = store.Insert(ctx, task.Task{UserID: "u2", Title: "other"})
	require.NoError(t, err)
	select {
	case <-ch:
		t.Fatal("received a snapshot for another user's mutation")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestTaskStore_SubscribeCancelDuringNotify(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertErrs := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if _, err := store.Insert(ctx, task.Task{UserID: "u1", Title: "t"}); err != nil {
				insertErrs <- err
				return
			}
		}
	}()

	// Subscribers come and go while inserts push snapshots; a departing
	// subscriber must never receive a send on its closed channel.
	for i := 0; i < 50; i++ {
		subCtx, cancel := context.WithCancel(ctx)
		_, err := store.Subscribe(subCtx, "u1")
		require.NoError(t, err)
		cancel()
	}

	<-done
	select {
	case err := <-insertErrs:
		t.Fatalf("insert failed during churn: %v", err)
	default:
	}
}
