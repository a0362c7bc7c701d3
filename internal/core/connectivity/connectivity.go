// Package connectivity tracks the online/offline state of the client and
// fans out transitions to interested components.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/rs/zerolog"
)

// Signal is the runtime network-status source the Monitor consumes.
type Signal interface {
	// Online returns the current connectivity state.
	Online() bool

	// Watch returns a channel that receives the new state on every
	// transition. The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) <-chan bool
}

// Monitor observes a Signal and fans transitions out to the event bus and
// to registered on-online hooks. Two states only; no debouncing, so rapid
// flapping triggers rapid repeated hooks — consumers must be idempotent.
type Monitor struct {
	signal Signal
	bus    *eventbus.EventBus
	log    zerolog.Logger

	online atomic.Bool

	mu       sync.Mutex
	onOnline []func(context.Context)
}

// NewMonitor creates a monitor seeded with the signal's current state.
func NewMonitor(signal Signal, bus *eventbus.EventBus, log zerolog.Logger) *Monitor {
	m := &Monitor{
		signal: signal,
		bus:    bus,
		log:    log.With().Str("component", "connectivity").Logger(),
	}
	m.online.Store(signal.Online())
	return m
}

// Online returns the last observed connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnOnline registers a hook invoked on every transition to online.
func (m *Monitor) OnOnline(fn func(context.Context)) {
	m.mu.Lock()
	m.onOnline = append(m.onOnline, fn)
	m.mu.Unlock()
}

// Run consumes signal transitions until ctx is cancelled. Call in a goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ch := m.signal.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-ch:
			if !ok {
				return
			}
			m.transition(ctx, online)
		}
	}
}

func (m *Monitor) transition(ctx context.Context, online bool) {
	if m.online.Swap(online) == online {
		return
	}

	m.log.Info().Bool("online", online).Msg("connectivity changed")
	if m.bus != nil {
		m.bus.PublishConnectivityChanged(eventbus.ConnectivityChangedPayload{Online: online})
	}

	if !online {
		return
	}

	m.mu.Lock()
	hooks := make([]func(context.Context), len(m.onOnline))
	copy(hooks, m.onOnline)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}
