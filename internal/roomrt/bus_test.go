package roomrt

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := newBus()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	b.Publish(RoomEvent{Kind: EventDataSync, From: "a", Data: "hello"})

	for _, sub := range []*Subscription{sub1, sub2} {
		ev := <-sub.Events()
		assert.Equal(t, EventDataSync, ev.Kind)
		assert.Equal(t, "hello", ev.Data)
	}
}

func TestBusPreservesPublisherOrder(t *testing.T) {
	b := newBus()
	sub := b.Subscribe()

	for i := 0; i < 10; i++ {
		b.Publish(RoomEvent{Kind: EventDocumentUpdate, From: "a", Document: fmt.Sprintf("d%d", i)})
	}

	for i := 0; i < 10; i++ {
		ev := <-sub.Events()
		assert.Equal(t, fmt.Sprintf("d%d", i), ev.Document)
	}
}

func TestBusDropsOldestOnOverflow(t *testing.T) {
	b := newBus()
	sub := b.Subscribe()

	// One more than the buffer holds; the first event must be the casualty.
	for i := 0; i <= busCapacity; i++ {
		b.Publish(RoomEvent{Kind: EventDataSync, From: "a", Data: fmt.Sprintf("d%d", i)})
	}

	ev := <-sub.Events()
	assert.Equal(t, "d1", ev.Data, "oldest undelivered event is dropped, not the newest")

	// The remainder drains in order, ending with the overflowing publish.
	var last RoomEvent
	for len(sub.Events()) > 0 {
		last = <-sub.Events()
	}
	assert.Equal(t, fmt.Sprintf("d%d", busCapacity), last.Data)
}

func TestBusPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := newBus()
	b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < busCapacity*3; i++ {
			b.Publish(RoomEvent{Kind: EventDataSync, From: "a"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := newBus()
	sub := b.Subscribe()

	b.Unsubscribe(sub)
	_, open := <-sub.Events()
	assert.False(t, open)

	// A second teardown (e.g. Close after Unsubscribe) must be a no-op.
	require.NotPanics(t, func() { sub.Close() })

	// Publishing after unsubscribe must not panic on the closed channel.
	require.NotPanics(t, func() {
		b.Publish(RoomEvent{Kind: EventPeerLeft, PeerID: "a"})
	})
}
