package reorder

import (
	"context"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/logging"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog"
)

const (
	outboxBuffer = 256
	maxAttempts  = 5
	baseBackoff  = 250 * time.Millisecond
)

// Patcher is the slice of the store the outbox needs.
type Patcher interface {
	UpdateFields(ctx context.Context, id string, p task.Patch) error
}

// Confirmer acknowledges a persisted order value so the feed can drop its
// local overlay. Implemented by feed.Feed.
type Confirmer interface {
	ConfirmOrder(taskID string, version uint64)
}

type entry struct {
	taskID   string
	order    int
	version  uint64
	attempts int
}

// Outbox persists order writes asynchronously with bounded retries and
// exponential backoff. A write that still fails after the last attempt is
// dropped with an order.dropped event and its overlay released, so the
// local order holds only until the next feed refresh restores the remote
// one.
type Outbox struct {
	patcher   Patcher
	confirmer Confirmer
	bus       *eventbus.EventBus
	log       zerolog.Logger
	backoff   time.Duration

	queue chan entry
}

// NewOutbox creates an outbox writing through the given patcher.
func NewOutbox(patcher Patcher, confirmer Confirmer, bus *eventbus.EventBus, log zerolog.Logger) *Outbox {
	return &Outbox{
		patcher:   patcher,
		confirmer: confirmer,
		bus:       bus,
		log:       log.With().Str("component", "reorder-outbox").Logger(),
		backoff:   baseBackoff,
		queue:     make(chan entry, outboxBuffer),
	}
}

// Enqueue schedules order writes for every changed task. Non-blocking: if
// the queue is full the write is dropped immediately with an event.
func (o *Outbox) Enqueue(changes map[string]int, version uint64) {
	for id, order := range changes {
		e := entry{taskID: id, order: order, version: version}
		select {
		case o.queue <- e:
		default:
			o.drop(e)
		}
	}
}

// Run processes queued writes until ctx is cancelled. Call in a goroutine.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-o.queue:
			o.process(ctx, e)
		}
	}
}

// Flush drains and processes everything currently queued. Used by the CLI,
// which exits too quickly for the background worker.
func (o *Outbox) Flush(ctx context.Context) {
	for {
		select {
		case e := <-o.queue:
			o.process(ctx, e)
		default:
			return
		}
	}
}

func (o *Outbox) process(ctx context.Context, e entry) {
	ctx = logging.WithTaskID(ctx, e.taskID)
	for {
		order := e.order
		err := o.patcher.UpdateFields(ctx, e.taskID, task.Patch{Order: &order})
		if err == nil {
			if o.confirmer != nil {
				o.confirmer.ConfirmOrder(e.taskID, e.version)
			}
			return
		}

		e.attempts++
		o.log.Warn().
			Ctx(ctx).
			Err(err).
			Str("task_id", e.taskID).
			Int("attempt", e.attempts).
			Msg("order update failed")

		if e.attempts >= maxAttempts {
			o.drop(e)
			return
		}

		wait := o.backoff << (e.attempts - 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (o *Outbox) drop(e entry) {
	o.log.Error().
		Str("task_id", e.taskID).
		Int("order", e.order).
		Int("attempts", e.attempts).
		Msg("order update dropped")
	if o.confirmer != nil {
		// Release the overlay; the next snapshot restores the remote order.
		o.confirmer.ConfirmOrder(e.taskID, e.version)
	}
	if o.bus != nil {
		o.bus.PublishOrderDropped(eventbus.OrderDroppedPayload{
			TaskID:   e.taskID,
			Order:    e.order,
			Attempts: e.attempts,
		})
	}
}
