package store

import (
	"context"

	"github.com/fakduai/khun-phaen-sync/internal/roomrt"
)

// RoomSnapshotAdapter adapts Store to roomrt.SnapshotStore, keeping the
// room runtime package free of a direct dependency on the Mongo-backed
// persistence adapter.
type RoomSnapshotAdapter struct {
	store *Store
}

// NewRoomSnapshotAdapter wraps store for use by roomrt.Reviver.
func NewRoomSnapshotAdapter(store *Store) *RoomSnapshotAdapter {
	return &RoomSnapshotAdapter{store: store}
}

// GetRoomDocument satisfies roomrt.SnapshotStore.
func (a *RoomSnapshotAdapter) GetRoomDocument(ctx context.Context, roomCode string) (*roomrt.PersistedRoom, error) {
	doc, err := a.store.GetRoomDocument(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return &roomrt.PersistedRoom{Document: doc.Document}, nil
}

// WorkspaceExists satisfies roomrt.SnapshotStore.
func (a *RoomSnapshotAdapter) WorkspaceExists(ctx context.Context, roomCode string) (bool, error) {
	w, err := a.store.GetWorkspaceByRoomCode(ctx, roomCode)
	if err != nil {
		return false, err
	}
	return w != nil, nil
}
