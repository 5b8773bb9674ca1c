package roomrt

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionHarness runs real Sessions behind an httptest server so protocol
// tests exercise the same read/write pumps production uses.
type sessionHarness struct {
	server   *httptest.Server
	registry *Registry
	cancel   context.CancelFunc
}

func newSessionHarness(t *testing.T, store SnapshotStore, persist PersistFunc) *sessionHarness {
	t.Helper()

	registry := NewRegistry()
	reviver := NewReviver(registry, store)
	ctx, cancel := context.WithCancel(context.Background())

	up := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := up.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		NewSession(conn, registry, reviver, persist, slog.Default()).Run(ctx)
	}))

	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return &sessionHarness{server: server, registry: registry, cancel: cancel}
}

func (h *sessionHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// joinRoom performs a Join and consumes the handshake replies plus the
// peer's own PeerJoined bus echo.
func joinRoom(t *testing.T, conn *websocket.Conn, roomCode, peerID string, isHost bool) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionJoin, RoomCode: roomCode, PeerID: peerID, IsHost: isHost}))

	require.Equal(t, TypeRoomInfo, readMsg(t, conn).Type)
	require.Equal(t, TypeConnected, readMsg(t, conn).Type)

	joined := readMsg(t, conn)
	require.Equal(t, TypePeerJoined, joined.Type)
	require.Equal(t, peerID, joined.Peer.ID)
}

func TestSessionJoinHandshakeOrder(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionJoin, RoomCode: "ABCD23", PeerID: "a", IsHost: true}))

	info := readMsg(t, conn)
	require.Equal(t, TypeRoomInfo, info.Type)
	assert.Equal(t, "ABCD23", info.RoomCode)
	assert.NotEmpty(t, info.HostID)
	require.Len(t, info.Peers, 1)
	assert.Equal(t, "a", info.Peers[0].ID)

	connected := readMsg(t, conn)
	require.Equal(t, TypeConnected, connected.Type)
	assert.Equal(t, "a", connected.PeerID)
	assert.Equal(t, "ABCD23", connected.RoomCode)
}

func TestSessionJoinDeliversPersistedSnapshot(t *testing.T) {
	store := newFakeSnapshotStore()
	store.rooms["R1"] = "X"
	h := newSessionHarness(t, store, nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionJoin, RoomCode: "R1", PeerID: "a", IsHost: false}))

	require.Equal(t, TypeRoomInfo, readMsg(t, conn).Type)
	require.Equal(t, TypeConnected, readMsg(t, conn).Type)

	sync := readMsg(t, conn)
	require.Equal(t, TypeDocumentSync, sync.Type, "first document frame after Connected carries the revived snapshot")
	assert.Equal(t, "X", sync.Document)
}

func TestSessionTwoPeerScenario(t *testing.T) {
	var (
		mu       sync.Mutex
		persists [][2]string
	)
	persist := func(ctx context.Context, roomCode, document string) error {
		mu.Lock()
		persists = append(persists, [2]string{roomCode, document})
		mu.Unlock()
		return nil
	}

	h := newSessionHarness(t, newFakeSnapshotStore(), persist)

	alpha := h.dial(t)
	joinRoom(t, alpha, "ABCD23", "a", true)

	beta := h.dial(t)
	joinRoom(t, beta, "ABCD23", "b", false)

	// Alpha observes beta's arrival.
	joined := readMsg(t, alpha)
	require.Equal(t, TypePeerJoined, joined.Type)
	assert.Equal(t, "b", joined.Peer.ID)

	// Alpha pushes a document; beta receives it, alpha gets no echo.
	require.NoError(t, alpha.WriteJSON(ClientMessage{Action: ActionSyncDocument, Document: "HELLO"}))

	sync := readMsg(t, beta)
	require.Equal(t, TypeDocumentSync, sync.Type)
	assert.Equal(t, "HELLO", sync.Document)

	require.NoError(t, alpha.WriteJSON(ClientMessage{Action: ActionPing}))
	next := readMsg(t, alpha)
	assert.Equal(t, TypePong, next.Type, "sender must not see its own DocumentSync")

	// The snapshot was persisted asynchronously, keyed by room code.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(persists) == 1 && persists[0] == [2]string{"ABCD23", "HELLO"}
	}, 2*time.Second, 10*time.Millisecond)

	// Beta disconnects; alpha observes the departure.
	require.NoError(t, beta.Close())
	left := readMsg(t, alpha)
	require.Equal(t, TypePeerLeft, left.Type)
	assert.Equal(t, "b", left.PeerID)
}

func TestSessionBroadcastSkipsSender(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)

	alpha := h.dial(t)
	joinRoom(t, alpha, "ABCD23", "a", true)
	beta := h.dial(t)
	joinRoom(t, beta, "ABCD23", "b", false)
	require.Equal(t, TypePeerJoined, readMsg(t, alpha).Type)

	require.NoError(t, beta.WriteJSON(ClientMessage{Action: ActionBroadcast, Data: "payload"}))

	data := readMsg(t, alpha)
	require.Equal(t, TypeData, data.Type)
	assert.Equal(t, "b", data.From)
	assert.Equal(t, "payload", data.Data)

	require.NoError(t, beta.WriteJSON(ClientMessage{Action: ActionPing}))
	assert.Equal(t, TypePong, readMsg(t, beta).Type, "sender must not see its own Data")
}

func TestSessionRejectsMessagesBeforeJoin(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionBroadcast, Data: "x"}))

	errMsg := readMsg(t, conn)
	require.Equal(t, TypeError, errMsg.Type)

	// The session survives the protocol error.
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionPing}))
	assert.Equal(t, TypePong, readMsg(t, conn).Type)
}

func TestSessionRejectsSecondJoin(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)
	joinRoom(t, conn, "ABCD23", "a", true)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionJoin, RoomCode: "ABCD23", PeerID: "a2", IsHost: false}))

	errMsg := readMsg(t, conn)
	require.Equal(t, TypeError, errMsg.Type)

	// Still bound: room operations keep working.
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionRequestSync}))
	assert.Equal(t, TypeDocumentSync, readMsg(t, conn).Type)
}

func TestSessionJoinUnknownUUIDRoomStaysUnbound(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Action:   ActionJoin,
		RoomCode: "123e4567-e89b-12d3-a456-426614174000",
		PeerID:   "a",
	}))

	errMsg := readMsg(t, conn)
	require.Equal(t, TypeError, errMsg.Type)
	assert.Equal(t, "Room not found", errMsg.Message)

	// Unbound: a legacy-code Join still succeeds afterwards.
	joinRoom(t, conn, "ABCD23", "a", true)
}

func TestSessionRequestSyncReturnsEmptyWithoutSnapshot(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)
	joinRoom(t, conn, "ABCD23", "a", true)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionRequestSync}))

	sync := readMsg(t, conn)
	require.Equal(t, TypeDocumentSync, sync.Type)
	assert.Empty(t, sync.Document)
}

func TestSessionLeaveMarksRoomEmpty(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)
	joinRoom(t, conn, "ABCD23", "a", true)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionLeave}))

	require.Eventually(t, func() bool {
		room := h.registry.Get("ABCD23")
		return room != nil && room.EmptySince() != nil
	}, 2*time.Second, 10*time.Millisecond, "empty_since must be set once the only peer leaves")
}

func TestSessionMalformedJSONIsNonFatal(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	errMsg := readMsg(t, conn)
	require.Equal(t, TypeError, errMsg.Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionPing}))
	assert.Equal(t, TypePong, readMsg(t, conn).Type)
}

func TestSessionShutdownSendsCloseFrame(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)
	conn := h.dial(t)
	joinRoom(t, conn, "ABCD23", "a", true)

	h.cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
		return
	}
}

func TestSessionDocumentOrderPreservedPerPublisher(t *testing.T) {
	h := newSessionHarness(t, newFakeSnapshotStore(), nil)

	alpha := h.dial(t)
	joinRoom(t, alpha, "ABCD23", "a", true)
	beta := h.dial(t)
	joinRoom(t, beta, "ABCD23", "b", false)
	require.Equal(t, TypePeerJoined, readMsg(t, alpha).Type)

	require.NoError(t, alpha.WriteJSON(ClientMessage{Action: ActionSyncDocument, Document: "d1"}))
	require.NoError(t, alpha.WriteJSON(ClientMessage{Action: ActionSyncDocument, Document: "d2"}))

	first := readMsg(t, beta)
	require.Equal(t, TypeDocumentSync, first.Type)
	assert.Equal(t, "d1", first.Document)

	second := readMsg(t, beta)
	require.Equal(t, TypeDocumentSync, second.Type)
	assert.Equal(t, "d2", second.Document)
}
