package roomrt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshotStore backs Revival with in-memory persisted state.
type fakeSnapshotStore struct {
	rooms      map[string]string // room_code -> document
	workspaces map[string]bool   // room_code -> exists
	err        error
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{rooms: map[string]string{}, workspaces: map[string]bool{}}
}

func (f *fakeSnapshotStore) GetRoomDocument(ctx context.Context, roomCode string) (*PersistedRoom, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.rooms[roomCode]
	if !ok {
		return nil, nil
	}
	return &PersistedRoom{Document: doc}, nil
}

func (f *fakeSnapshotStore) WorkspaceExists(ctx context.Context, roomCode string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.workspaces[roomCode], nil
}

func TestEnsureRoomExistsReturnsLiveRoom(t *testing.T) {
	reg := NewRegistry()
	rv := NewReviver(reg, newFakeSnapshotStore())

	live := newRoom("id1", "ABCD23", "h", nil)
	reg.InsertIfAbsent("ABCD23", live)

	room, err := rv.EnsureRoomExists(context.Background(), "ABCD23")
	require.NoError(t, err)
	assert.Same(t, live, room)
}

func TestEnsureRoomExistsRevivesPersistedSnapshot(t *testing.T) {
	store := newFakeSnapshotStore()
	store.rooms["R1"] = "X"
	rv := NewReviver(NewRegistry(), store)

	room, err := rv.EnsureRoomExists(context.Background(), "R1")
	require.NoError(t, err)

	doc, ok := room.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "X", doc)
	assert.NotNil(t, room.EmptySince(), "a revived room starts empty")
}

func TestEnsureRoomExistsAcceptsLegacyShortCode(t *testing.T) {
	rv := NewReviver(NewRegistry(), newFakeSnapshotStore())

	room, err := rv.EnsureRoomExists(context.Background(), "ABCD23")
	require.NoError(t, err)
	require.NotNil(t, room)

	_, ok := room.Snapshot()
	assert.False(t, ok)
}

func TestEnsureRoomExistsRejectsUnknownUUIDCode(t *testing.T) {
	rv := NewReviver(NewRegistry(), newFakeSnapshotStore())

	uuidCode := "123e4567-e89b-12d3-a456-426614174000"
	_, err := rv.EnsureRoomExists(context.Background(), uuidCode)
	assert.ErrorIs(t, err, ErrInvalidRoomCode)
}

func TestEnsureRoomExistsAcceptsUUIDCodeWithWorkspace(t *testing.T) {
	store := newFakeSnapshotStore()
	uuidCode := "123e4567-e89b-12d3-a456-426614174000"
	store.workspaces[uuidCode] = true
	rv := NewReviver(NewRegistry(), store)

	room, err := rv.EnsureRoomExists(context.Background(), uuidCode)
	require.NoError(t, err)
	assert.NotNil(t, room)
}

func TestEnsureRoomExistsPropagatesStoreError(t *testing.T) {
	store := newFakeSnapshotStore()
	store.err = errors.New("mongo down")
	rv := NewReviver(NewRegistry(), store)

	_, err := rv.EnsureRoomExists(context.Background(), "ABCD23")
	assert.Error(t, err)
}

func TestCreateRoomIsIdempotentPerCode(t *testing.T) {
	rv := NewReviver(NewRegistry(), newFakeSnapshotStore())

	first, err := rv.CreateRoom(context.Background(), "ABCD23", "host-1")
	require.NoError(t, err)
	assert.False(t, first.Restored)
	assert.Equal(t, "host-1", first.Room.HostID)

	second, err := rv.CreateRoom(context.Background(), "ABCD23", "")
	require.NoError(t, err)
	assert.True(t, second.Restored)
	assert.Equal(t, first.Room.ID, second.Room.ID, "same room id both times")
}

func TestCreateRoomGeneratesCodeFromRestrictedAlphabet(t *testing.T) {
	rv := NewReviver(NewRegistry(), newFakeSnapshotStore())

	for i := 0; i < 20; i++ {
		result, err := rv.CreateRoom(context.Background(), "", "")
		require.NoError(t, err)

		code := result.Room.Code
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, c),
				"code %q contains %q, outside the restricted alphabet", code, c)
		}
	}
}

func TestCreateRoomRestoresPersistedDocument(t *testing.T) {
	store := newFakeSnapshotStore()
	store.rooms["ABCD23"] = "persisted"
	rv := NewReviver(NewRegistry(), store)

	result, err := rv.CreateRoom(context.Background(), "ABCD23", "")
	require.NoError(t, err)

	doc, ok := result.Room.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "persisted", doc)
}

func TestLooksLikeUUID(t *testing.T) {
	assert.True(t, looksLikeUUID("123e4567-e89b-12d3-a456-426614174000"))
	assert.False(t, looksLikeUUID("ABCD23"))
	assert.False(t, looksLikeUUID(strings.Repeat("x", 36)), "36 chars without a dash is not uuid-shaped")
}
