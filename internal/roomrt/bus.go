package roomrt

import "sync"

// busCapacity bounds each subscriber's undelivered-event buffer.
const busCapacity = 256

// Bus is a multi-producer, multi-subscriber broadcast channel. Publish
// never blocks: on a full subscriber channel, the oldest buffered event is
// dropped to make room for the new one, so a slow subscriber can never
// slow down a publisher or other subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is a single subscriber's handle on the Bus.
type Subscription struct {
	events chan RoomEvent
	bus    *Bus
}

func newBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber. Cheap enough to be called on
// every Join and torn down on every disconnect.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{events: make(chan RoomEvent, busCapacity), bus: b}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel so a consumer
// ranging over Events terminates. Safe to call more than once; the close
// happens under the bus lock, so it cannot race a concurrent Publish.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.events)
	}
	b.mu.Unlock()
}

// Publish fans an event out to every current subscriber without blocking.
func (b *Bus) Publish(ev RoomEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			// Full: drop the oldest buffered event, then push the new one.
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- ev:
			default:
			}
		}
	}
}

// Events returns the channel the subscriber should range/select over.
func (s *Subscription) Events() <-chan RoomEvent {
	return s.events
}

// Close unsubscribes without needing a Room handle, for teardown paths
// where the Room may already have been evicted from the registry.
func (s *Subscription) Close() {
	s.bus.Unsubscribe(s)
}
