package reorder

import (
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
)

// ListView is the slice of the feed the engine needs: the current active
// list plus the optimistic order overlay.
type ListView interface {
	Tasks() []task.Task
	OverlayOrder(orders map[string]int) uint64
}

// Engine turns drag-end events into an optimistic local reorder plus
// queued remote order writes.
type Engine struct {
	view   ListView
	outbox *Outbox
	log    zerolog.Logger
}

// NewEngine creates an engine over the given list view and outbox.
func NewEngine(view ListView, outbox *Outbox, log zerolog.Logger) *Engine {
	return &Engine{
		view:   view,
		outbox: outbox,
		log:    log.With().Str("component", "reorder").Logger(),
	}
}

// HandleDragEnd processes a completed drag: the task with activeID lands at
// the position of overID. The list updates immediately from the locally
// recomputed order; persistence happens through the outbox. Returns the
// number of order writes queued (zero when the drop was a no-op).
func (e *Engine) HandleDragEnd(activeID, overID string) int {
	if activeID == overID {
		return 0
	}

	_, changes := Move(e.view.Tasks(), activeID, overID)
	if len(changes) == 0 {
		return 0
	}

	version := e.view.OverlayOrder(changes)
	e.outbox.Enqueue(changes, version)

	e.log.Debug().
		Str("active", activeID).
		Str("over", overID).
		Int("writes", len(changes)).
		Msg("reorder applied")

	return len(changes)
}
