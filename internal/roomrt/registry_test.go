package roomrt

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInsertIfAbsent(t *testing.T) {
	reg := NewRegistry()
	first := newRoom("id1", "ABCD23", "a", nil)
	second := newRoom("id2", "ABCD23", "b", nil)

	winner, inserted := reg.InsertIfAbsent("ABCD23", first)
	require.True(t, inserted)
	require.Same(t, first, winner)

	winner, inserted = reg.InsertIfAbsent("ABCD23", second)
	assert.False(t, inserted, "first insert wins, the loser is discarded")
	assert.Same(t, first, winner)
	assert.Same(t, first, reg.Get("ABCD23"))
}

func TestRegistryRemoveIsCompareAndDelete(t *testing.T) {
	reg := NewRegistry()
	stale := newRoom("id1", "ABCD23", "a", nil)
	fresh := newRoom("id2", "ABCD23", "a", nil)

	reg.InsertIfAbsent("ABCD23", stale)
	reg.Remove("ABCD23", fresh)
	assert.Same(t, stale, reg.Get("ABCD23"), "removal of a room that was replaced must be a no-op")

	reg.Remove("ABCD23", stale)
	assert.Nil(t, reg.Get("ABCD23"))
}

func TestRegistrySnapshotAndLen(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 5; i++ {
		code := fmt.Sprintf("ROOM%d", i)
		reg.InsertIfAbsent(code, newRoom(code, code, "h", nil))
	}

	assert.Equal(t, 5, reg.Len())
	assert.Len(t, reg.Snapshot(), 5)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("ROOM%d", i%10)
			room, _ := reg.InsertIfAbsent(code, newRoom(code, code, "h", nil))
			_ = reg.Get(code)
			_ = reg.Snapshot()
			if i%3 == 0 {
				reg.Remove(code, room)
			}
		}(i)
	}
	wg.Wait()
}
