package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T, buffer int) *EventBus {
	t.Helper()

	bus := New(buffer)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Start(ctx)
	return bus
}

func TestEventBus_TypedDelivery(t *testing.T) {
	bus := startBus(t, 8)

	var (
		mu  sync.Mutex
		got []bool
	)
	bus.SubscribeConnectivityChanged(func(p ConnectivityChangedPayload) {
		mu.Lock()
		got = append(got, p.Online)
		mu.Unlock()
	})

	bus.PublishConnectivityChanged(ConnectivityChangedPayload{Online: true})
	bus.PublishConnectivityChanged(ConnectivityChangedPayload{Online: false})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, got, "events delivered in publish order")
}

func TestEventBus_NoCrossEventDelivery(t *testing.T) {
	bus := startBus(t, 8)

	delivered := make(chan struct{}, 1)
	bus.SubscribeTaskDeleted(func(TaskDeletedPayload) {
		delivered <- struct{}{}
	})

	bus.PublishSyncCompleted(SyncCompletedPayload{Synced: 1})

	select {
	case <-delivered:
		t.Fatal("subscriber received an event of another type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_DropHookOnFullBuffer(t *testing.T) {
	bus := New(1) // not started, so the buffer never drains

	dropped := make(chan Event, 1)
	bus.OnDrop(func(event Event, _ any) {
		dropped <- event
	})

	bus.PublishTaskCreated(TaskCreatedPayload{})
	bus.PublishTaskCreated(TaskCreatedPayload{})

	select {
	case event := <-dropped:
		assert.Equal(t, EventTaskCreated, event)
	case <-time.After(time.Second):
		t.Fatal("drop hook did not fire")
	}
}

func TestEventBus_PanicInSubscriberIsContained(t *testing.T) {
	bus := startBus(t, 8)

	panicked := make(chan struct{}, 1)
	bus.OnPanic(func(Event, any, any) {
		panicked <- struct{}{}
	})

	delivered := make(chan struct{}, 2)
	bus.SubscribeTaskDeleted(func(TaskDeletedPayload) {
		panic("boom")
	})
	bus.SubscribeTaskDeleted(func(TaskDeletedPayload) {
		delivered <- struct{}{}
	})

	bus.PublishTaskDeleted(TaskDeletedPayload{TaskID: "t1"})

	select {
	case <-panicked:
	case <-time.After(time.Second):
		t.Fatal("panic hook did not fire")
	}
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("later subscribers must still run after a panic")
	}
}
