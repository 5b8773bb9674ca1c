package roomrt

import "time"

// Subscribe registers a new bus subscriber for this Room.
func (r *Room) Subscribe() *Subscription {
	return r.bus.Subscribe()
}

// Unsubscribe tears down a bus subscription.
func (r *Room) Unsubscribe(sub *Subscription) {
	r.bus.Unsubscribe(sub)
}

// Join inserts peer into the Room, clears empty_since, and publishes
// PeerJoined. Returns the peer list and snapshot state the caller needs to
// reply with RoomInfo/Connected/DocumentSync, captured under the lock so
// the caller can release it before writing to a socket.
func (r *Room) Join(peer PeerInfo) (peers []PeerInfo, hostID string, snapshot string, hasSnapshot bool) {
	r.mu.Lock()
	r.peers[peer.ID] = peer
	r.emptySince = nil
	peers = r.peersLocked()
	hostID = r.HostID
	snapshot, hasSnapshot = r.snapshot, r.hasSnap
	r.mu.Unlock()

	r.bus.Publish(RoomEvent{Kind: EventPeerJoined, Peer: peer})
	return peers, hostID, snapshot, hasSnapshot
}

// Leave removes peerID from the Room, publishes PeerLeft, and marks the
// Room empty if no peers remain. On host departure, marks the oldest
// remaining peer (by joined_at) as host and publishes HostChanged; the
// Room's HostID itself is left unchanged.
func (r *Room) Leave(peerID string) {
	r.mu.Lock()
	departing, existed := r.peers[peerID]
	delete(r.peers, peerID)

	var hostChangedTo string
	if existed && departing.IsHost && len(r.peers) > 0 {
		var oldest *PeerInfo
		for id := range r.peers {
			p := r.peers[id]
			if oldest == nil || p.JoinedAt.Before(oldest.JoinedAt) {
				pp := p
				oldest = &pp
			}
		}
		if oldest != nil {
			oldest.IsHost = true
			r.peers[oldest.ID] = *oldest
			hostChangedTo = oldest.ID
		}
	}

	empty := len(r.peers) == 0
	if empty {
		now := time.Now().UTC()
		r.emptySince = &now
	}
	r.mu.Unlock()

	if !existed {
		return
	}
	r.bus.Publish(RoomEvent{Kind: EventPeerLeft, PeerID: peerID})
	if hostChangedTo != "" {
		r.bus.Publish(RoomEvent{Kind: EventHostChanged, NewHostID: hostChangedTo})
	}
}

// Broadcast publishes a DataSync event carrying data from fromPeerID.
func (r *Room) Broadcast(fromPeerID, data string) {
	r.bus.Publish(RoomEvent{Kind: EventDataSync, From: fromPeerID, Data: data})
}

// SetSnapshot replaces the Room's document snapshot (last-writer-wins) and
// publishes DocumentUpdate.
func (r *Room) SetSnapshot(fromPeerID, document string) time.Time {
	now := time.Now().UTC()
	r.mu.Lock()
	r.snapshot = document
	r.hasSnap = true
	r.lastSync = now
	r.mu.Unlock()

	r.bus.Publish(RoomEvent{Kind: EventDocumentUpdate, From: fromPeerID, Document: document})
	return now
}

// Snapshot returns the current document snapshot, if any.
func (r *Room) Snapshot() (document string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot, r.hasSnap
}

// Peers returns a point-in-time copy of the peer set.
func (r *Room) Peers() []PeerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peersLocked()
}

func (r *Room) peersLocked() []PeerInfo {
	out := make([]PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// IsEmpty reports whether the Room currently has no peers.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers) == 0
}

// EmptySince returns the moment the Room last became empty, if it
// currently has no peers; nil otherwise.
func (r *Room) EmptySince() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emptySince == nil {
		return nil
	}
	t := *r.emptySince
	return &t
}

// ClearEmptySince clears the idle marker; used when a racing Join observes
// a Room the sweeper is about to (or just did) evict.
func (r *Room) ClearEmptySince() {
	r.mu.Lock()
	r.emptySince = nil
	r.mu.Unlock()
}
