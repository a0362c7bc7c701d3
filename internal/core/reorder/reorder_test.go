package reorder

import (
	"testing"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksWithOrders(orders ...int) []task.Task {
	out := make([]task.Task, len(orders))
	for i, o := range orders {
		out[i] = task.Task{ID: string(rune('a' + i)), Order: o}
	}
	return out
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestMove_DownwardsRenumbersDense(t *testing.T) {
	tasks := tasksWithOrders(0, 1, 2, 3)

	moved, changes := Move(tasks, "a", "c")

	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(moved))
	for i, tk := range moved {
		assert.Equal(t, i, tk.Order, "order values must be dense 0..n-1")
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 0, "c": 1}, changes, "unchanged tasks are not written")
}

func TestMove_Upwards(t *testing.T) {
	tasks := tasksWithOrders(0, 1, 2, 3)

	moved, changes := Move(tasks, "d", "b")

	assert.Equal(t, []string{"a", "d", "b", "c"}, ids(moved))
	assert.Equal(t, map[string]int{"d": 1, "b": 2, "c": 3}, changes)
}

func TestMove_SparseOrdersCompact(t *testing.T) {
	// Orders from a store that never reordered: gaps and duplicates.
	tasks := []task.Task{
		{ID: "a", Order: 0},
		{ID: "b", Order: 0},
		{ID: "c", Order: 7},
	}

	moved, changes := Move(tasks, "c", "a")

	require.Equal(t, []string{"c", "a", "b"}, ids(moved))
	for i, tk := range moved {
		assert.Equal(t, i, tk.Order)
	}
	assert.Equal(t, map[string]int{"c": 0, "a": 1, "b": 2}, changes)
}

func TestMove_NoOps(t *testing.T) {
	tasks := tasksWithOrders(0, 1, 2)

	t.Run("same id", func(t *testing.T) {
		moved, changes := Move(tasks, "a", "a")
		assert.Empty(t, changes)
		assert.Equal(t, ids(tasks), ids(moved))
	})

	t.Run("active missing", func(t *testing.T) {
		_, changes := Move(tasks, "zz", "a")
		assert.Empty(t, changes)
	})

	t.Run("target missing", func(t *testing.T) {
		_, changes := Move(tasks, "a", "zz")
		assert.Empty(t, changes)
	})

	t.Run("input not mutated", func(t *testing.T) {
		_, _ = Move(tasks, "a", "c")
		assert.Equal(t, []string{"a", "b", "c"}, ids(tasks))
		assert.Equal(t, 0, tasks[0].Order)
	})
}
