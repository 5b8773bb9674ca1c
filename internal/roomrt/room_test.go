package roomrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeer(id string, isHost bool) PeerInfo {
	return PeerInfo{ID: id, JoinedAt: time.Now().UTC(), IsHost: isHost}
}

func TestRoomEmptySinceTracksPeerSet(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)

	// A freshly materialized room has no peers and is marked empty.
	require.True(t, r.IsEmpty())
	require.NotNil(t, r.EmptySince())

	r.Join(testPeer("a", true))
	assert.False(t, r.IsEmpty())
	assert.Nil(t, r.EmptySince(), "empty_since must clear the moment a peer joins")

	r.Join(testPeer("b", false))
	r.Leave("a")
	assert.Nil(t, r.EmptySince(), "room is not empty while b remains")

	r.Leave("b")
	assert.True(t, r.IsEmpty())
	assert.NotNil(t, r.EmptySince(), "empty_since must be set the moment the last peer departs")
}

func TestRoomJoinReturnsStateForReplies(t *testing.T) {
	snap := "DOC"
	r := newRoom("room1", "ABCD23", "h", &snap)

	peers, hostID, snapshot, hasSnapshot := r.Join(testPeer("a", false))

	assert.Len(t, peers, 1)
	assert.Equal(t, "h", hostID)
	assert.True(t, hasSnapshot)
	assert.Equal(t, "DOC", snapshot)
}

func TestRoomJoinPublishesPeerJoined(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)
	sub := r.Subscribe()

	r.Join(testPeer("a", true))

	ev := <-sub.Events()
	assert.Equal(t, EventPeerJoined, ev.Kind)
	assert.Equal(t, "a", ev.Peer.ID)
}

func TestRoomLeaveUnknownPeerPublishesNothing(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)
	r.Join(testPeer("a", true))
	sub := r.Subscribe()

	r.Leave("ghost")

	assert.Empty(t, sub.Events())
	assert.False(t, r.IsEmpty())
}

func TestRoomHostHandoverOnHostDeparture(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)
	r.Join(PeerInfo{ID: "a", JoinedAt: time.Now().UTC(), IsHost: true})
	r.Join(PeerInfo{ID: "b", JoinedAt: time.Now().UTC().Add(time.Second), IsHost: false})
	r.Join(PeerInfo{ID: "c", JoinedAt: time.Now().UTC().Add(2 * time.Second), IsHost: false})
	sub := r.Subscribe()

	r.Leave("a")

	left := <-sub.Events()
	require.Equal(t, EventPeerLeft, left.Kind)
	assert.Equal(t, "a", left.PeerID)

	handover := <-sub.Events()
	require.Equal(t, EventHostChanged, handover.Kind)
	assert.Equal(t, "b", handover.NewHostID, "oldest remaining peer becomes host")

	for _, p := range r.Peers() {
		if p.ID == "b" {
			assert.True(t, p.IsHost)
		}
	}
}

func TestRoomNonHostDepartureKeepsHost(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)
	r.Join(testPeer("a", true))
	r.Join(testPeer("b", false))
	sub := r.Subscribe()

	r.Leave("b")

	ev := <-sub.Events()
	assert.Equal(t, EventPeerLeft, ev.Kind)
	assert.Empty(t, sub.Events(), "no HostChanged when a non-host departs")
	assert.Equal(t, "a", r.HostID)
}

func TestRoomSetSnapshotLastWriterWins(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)
	sub := r.Subscribe()

	_, ok := r.Snapshot()
	require.False(t, ok)

	r.SetSnapshot("a", "v1")
	at := r.SetSnapshot("b", "v2")

	doc, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "v2", doc)
	assert.False(t, at.Before(r.CreatedAt), "last_sync never precedes created_at")

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, EventDocumentUpdate, first.Kind)
	assert.Equal(t, "v1", first.Document)
	assert.Equal(t, "v2", second.Document)
}

func TestRoomPeersReturnsCopy(t *testing.T) {
	r := newRoom("room1", "ABCD23", "a", nil)
	r.Join(testPeer("a", true))

	peers := r.Peers()
	peers[0].ID = "mutated"

	assert.Equal(t, "a", r.Peers()[0].ID)
}
