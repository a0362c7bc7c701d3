package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/eventbus/testbus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_SetNotifiesWatchers(t *testing.T) {
	m := NewManual(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := m.Watch(ctx)

	m.Set(true)
	select {
	case online := <-ch:
		assert.True(t, online)
	case <-time.After(time.Second):
		t.Fatal("no transition delivered")
	}

	m.Set(true) // same state, no delivery
	select {
	case <-ch:
		t.Fatal("duplicate state must not be delivered")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 5*time.Millisecond)
}

func TestManual_WatchCancelDuringSet(t *testing.T) {
	m := NewManual(false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			m.Set(i%2 == 0)
		}
	}()

	// Watchers come and go while transitions stream; a departing watcher
	// must never receive a send on its closed channel.
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_ = m.Watch(ctx)
		cancel()
	}
	<-done
}

func TestMonitor_TransitionsAndHooks(t *testing.T) {
	signal := NewManual(false)
	bus := testbus.New(t)
	m := NewMonitor(signal, bus.EventBus, zerolog.Nop())

	assert.False(t, m.Online(), "seeded from the signal")

	var hookCalls atomic.Int32
	m.OnOnline(func(context.Context) { hookCalls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	signal.Set(true)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)

	evt, ok := bus.WaitFor(t, eventbus.EventConnectivityChanged, time.Second)
	require.True(t, ok)
	assert.True(t, evt.Payload.(eventbus.ConnectivityChangedPayload).Online)

	require.Eventually(t, func() bool {
		return hookCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Going offline fires the event but not the on-online hooks.
	signal.Set(false)
	require.Eventually(t, func() bool {
		return !m.Online()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), hookCalls.Load())

	// No debouncing: each flap back online re-fires the hooks.
	signal.Set(true)
	require.Eventually(t, func() bool {
		return hookCalls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestHTTPProbe_InitialState(t *testing.T) {
	t.Run("reachable endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		p := NewHTTPProbe(srv.URL, time.Minute)
		assert.True(t, p.Online())
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close() // connection refused from here on

		p := NewHTTPProbe(srv.URL, time.Minute)
		assert.False(t, p.Online())
	})

	t.Run("error status still counts as online", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		p := NewHTTPProbe(srv.URL, time.Minute)
		assert.True(t, p.Online(), "any response proves reachability")
	})
}

func TestHTTPProbe_WatchDeliversTransitions(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProbe(srv.URL, 20*time.Millisecond)
	require.True(t, p.Online())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := p.Watch(ctx)

	fail.Store(true)
	select {
	case online := <-ch:
		assert.False(t, online)
	case <-time.After(2 * time.Second):
		t.Fatal("offline transition not delivered")
	}

	fail.Store(false)
	select {
	case online := <-ch:
		assert.True(t, online)
	case <-time.After(2 * time.Second):
		t.Fatal("online transition not delivered")
	}
}
