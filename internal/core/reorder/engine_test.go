package reorder

import (
	"context"
	"testing"

	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListView struct {
	tasks    []task.Task
	overlays map[string]int
	version  uint64
}

func (v *fakeListView) Tasks() []task.Task { return v.tasks }

func (v *fakeListView) OverlayOrder(orders map[string]int) uint64 {
	v.overlays = orders
	v.version++
	return v.version
}

func TestEngine_HandleDragEnd(t *testing.T) {
	view := &fakeListView{tasks: tasksWithOrders(0, 1, 2)}
	patcher := newFakePatcher(0)
	confirmer := newFakeConfirmer()
	outbox := NewOutbox(patcher, confirmer, nil, zerolog.Nop())
	engine := NewEngine(view, outbox, zerolog.Nop())

	writes := engine.HandleDragEnd("a", "c")
	require.Equal(t, 3, writes)

	assert.Equal(t, map[string]int{"b": 0, "c": 1, "a": 2}, view.overlays,
		"overlay applied before persistence")

	outbox.Flush(context.Background())
	assert.Equal(t, []int{2}, patcher.orders("a"))
	assert.Equal(t, []int{0}, patcher.orders("b"))
	assert.Equal(t, []int{1}, patcher.orders("c"))
	assert.Equal(t, view.version, confirmer.confirmed["a"], "confirm carries the overlay version")
}

func TestEngine_HandleDragEnd_NoOp(t *testing.T) {
	view := &fakeListView{tasks: tasksWithOrders(0, 1)}
	outbox := NewOutbox(newFakePatcher(0), nil, nil, zerolog.Nop())
	engine := NewEngine(view, outbox, zerolog.Nop())

	assert.Zero(t, engine.HandleDragEnd("a", "a"))
	assert.Zero(t, engine.HandleDragEnd("a", "missing"))
	assert.Nil(t, view.overlays)
}
