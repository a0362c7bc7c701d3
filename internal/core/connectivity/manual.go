package connectivity

import (
	"context"
	"sync"
)

// Manual is a Signal driven by explicit Set calls. Used by tests and by the
// --offline flag, which pins the client offline regardless of the network.
type Manual struct {
	mu       sync.Mutex
	online   bool
	watchers []chan bool
}

// NewManual creates a manual signal with the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

// Online returns the current state.
func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set changes the state and notifies all watchers of the transition.
// Setting the same state twice is a no-op.
func (m *Manual) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online

	// Non-blocking sends under the same lock that guards watcher removal
	// and close; a departing watcher can never see a send after close.
	for _, ch := range m.watchers {
		select {
		case ch <- online:
		default:
		}
	}
}

// Watch registers a watcher channel. The channel is closed when ctx is
// cancelled.
func (m *Manual) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool, 8)

	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for i, w := range m.watchers {
			if w == ch {
				m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
				break
			}
		}
		close(ch)
		m.mu.Unlock()
	}()

	return ch
}
