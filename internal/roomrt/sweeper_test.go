package roomrt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func agedRoom(code string, emptyFor time.Duration) *Room {
	r := newRoom(code, code, "h", nil)
	past := time.Now().UTC().Add(-emptyFor)
	r.mu.Lock()
	r.emptySince = &past
	r.mu.Unlock()
	return r
}

func TestSweepEvictsRoomsPastIdleTimeout(t *testing.T) {
	reg := NewRegistry()
	reg.InsertIfAbsent("OLD", agedRoom("OLD", 2*time.Hour))
	reg.InsertIfAbsent("FRESH", agedRoom("FRESH", time.Minute))

	occupied := newRoom("BUSY", "BUSY", "h", nil)
	occupied.Join(testPeer("a", true))
	reg.InsertIfAbsent("BUSY", occupied)

	s := NewSweeper(reg, time.Hour, nil)
	s.sweep()

	assert.Nil(t, reg.Get("OLD"), "room empty past the timeout is evicted")
	assert.NotNil(t, reg.Get("FRESH"), "room empty within the timeout survives")
	assert.NotNil(t, reg.Get("BUSY"), "occupied room survives")
}

func TestSweepToleratesRacingJoin(t *testing.T) {
	reg := NewRegistry()
	room := agedRoom("R1", 2*time.Hour)
	reg.InsertIfAbsent("R1", room)

	// A Join that lands before the sweep clears empty_since and wins.
	room.Join(testPeer("a", true))

	s := NewSweeper(reg, time.Hour, nil)
	s.sweep()

	assert.Same(t, room, reg.Get("R1"))
}

func TestRunReturnsImmediatelyWhenDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSweeper(NewRegistry(), 0, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run must return without ticking when the idle timeout is 0")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(NewRegistry(), time.Hour, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run must exit when its context is canceled")
	}
}
