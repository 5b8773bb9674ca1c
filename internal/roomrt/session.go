package roomrt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Sync messages carry whole
	// documents, so this is a document-size ceiling, not a chat-line one.
	maxMessageSize = 1 << 20

	sendBuffer = 256
)

// PersistFunc asynchronously persists a room's document snapshot. Failures
// are logged by the caller and never surfaced to the peer.
type PersistFunc func(ctx context.Context, roomCode, document string) error

// Session is the server-side task owning one peer's socket and protocol
// state. It never holds a Room handle across a network operation: every
// mutation re-acquires the Room from the Registry by code, mutates, and
// releases before any socket write.
type Session struct {
	conn     *websocket.Conn
	registry *Registry
	reviver  *Reviver
	persist  PersistFunc
	logger   *slog.Logger

	send chan ServerMessage

	// Protocol cursors, touched only by the readPump goroutine. Bus events
	// reach the socket via a forwarder goroutine that owns nothing but its
	// subscription and writes into send, so writePump never reads these.
	bound         bool
	roomCode      string
	peerID        string
	sub           *Subscription
	forwarderDone chan struct{}
}

// NewSession wraps conn with the protocol state machine.
func NewSession(conn *websocket.Conn, registry *Registry, reviver *Reviver, persist PersistFunc, logger *slog.Logger) *Session {
	return &Session{
		conn:     conn,
		registry: registry,
		reviver:  reviver,
		persist:  persist,
		logger:   logger,
		send:     make(chan ServerMessage, sendBuffer),
	}
}

// Run drives the session until the socket closes or ctx is canceled (process
// shutdown), in which case the peer is sent a close frame. It blocks the caller.
func (s *Session) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump()
	}()

	stop := context.AfterFunc(ctx, func() {
		// WriteControl is safe concurrently with writePump's data writes.
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		s.conn.Close()
	})
	defer stop()

	s.readPump(ctx)
	<-done
}

func (s *Session) readPump(ctx context.Context) {
	defer s.cleanup()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.reply(ServerMessage{Type: TypeError, Message: "malformed message"})
			continue
		}

		if err := s.dispatch(ctx, msg); err == errSessionClosed {
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forwardEvents drains a bus subscription into the session's send channel
// until the subscription is closed. selfID is captured at Join time so the
// forwarder never touches the session's mutable cursors.
func (s *Session) forwardEvents(sub *Subscription, selfID string, done chan struct{}) {
	defer close(done)
	for ev := range sub.Events() {
		if msg, forward := translateEvent(ev, selfID); forward {
			s.reply(msg)
		}
	}
}

// translateEvent maps a bus event to the outbound message a subscriber
// should see, or drops it.
func translateEvent(ev RoomEvent, selfID string) (ServerMessage, bool) {
	switch ev.Kind {
	case EventPeerJoined:
		peer := ev.Peer
		return ServerMessage{Type: TypePeerJoined, Peer: &peer}, true
	case EventPeerLeft:
		return ServerMessage{Type: TypePeerLeft, PeerID: ev.PeerID}, true
	case EventDataSync:
		if ev.From == selfID {
			return ServerMessage{}, false
		}
		return ServerMessage{Type: TypeData, From: ev.From, Data: ev.Data}, true
	case EventDocumentUpdate:
		if ev.From == selfID {
			return ServerMessage{}, false
		}
		return ServerMessage{Type: TypeDocumentSync, Document: ev.Document}, true
	case EventHostChanged:
		// Reserved: not forwarded to clients.
		return ServerMessage{}, false
	default:
		return ServerMessage{}, false
	}
}

var errSessionClosed = errProtocolSentinel{}

type errProtocolSentinel struct{}

func (errProtocolSentinel) Error() string { return "session closed" }

func (s *Session) dispatch(ctx context.Context, msg ClientMessage) error {
	if !s.bound {
		switch msg.Action {
		case ActionJoin:
			return s.handleJoin(ctx, msg)
		case ActionPing:
			s.reply(ServerMessage{Type: TypePong})
			return nil
		default:
			s.reply(ServerMessage{Type: TypeError, Message: "not joined"})
			return nil
		}
	}

	switch msg.Action {
	case ActionJoin:
		s.reply(ServerMessage{Type: TypeError, Message: "already joined"})
	case ActionLeave:
		s.handleLeave()
		return errSessionClosed
	case ActionBroadcast:
		s.handleBroadcast(msg)
	case ActionSyncDocument:
		s.handleSyncDocument(msg)
	case ActionRequestSync:
		s.handleRequestSync()
	case ActionPing:
		s.reply(ServerMessage{Type: TypePong})
	default:
		s.reply(ServerMessage{Type: TypeError, Message: "unknown action"})
	}
	return nil
}

func (s *Session) handleJoin(ctx context.Context, msg ClientMessage) error {
	room, err := s.reviver.EnsureRoomExists(ctx, msg.RoomCode)
	if err != nil {
		s.reply(ServerMessage{Type: TypeError, Message: "Room not found"})
		return nil
	}

	peer := PeerInfo{
		ID:       msg.PeerID,
		JoinedAt: time.Now().UTC(),
		IsHost:   msg.IsHost,
		Metadata: msg.Metadata,
	}

	// Subscribe before publishing so this peer cannot miss its own
	// PeerJoined or any event that follows it.
	sub := room.Subscribe()
	peers, hostID, snapshot, hasSnapshot := room.Join(peer)

	s.bound = true
	s.roomCode = msg.RoomCode
	s.peerID = msg.PeerID
	s.sub = sub

	// Queue this peer's own replies before the forwarder starts so no bus
	// event can precede RoomInfo/Connected/DocumentSync on the wire.
	s.reply(ServerMessage{Type: TypeRoomInfo, RoomCode: msg.RoomCode, HostID: hostID, Peers: peers})
	s.reply(ServerMessage{Type: TypeConnected, PeerID: msg.PeerID, RoomCode: msg.RoomCode})
	if hasSnapshot {
		s.reply(ServerMessage{Type: TypeDocumentSync, Document: snapshot})
	}

	s.forwarderDone = make(chan struct{})
	go s.forwardEvents(sub, msg.PeerID, s.forwarderDone)
	return nil
}

func (s *Session) handleLeave() {
	s.leaveRoom()
}

func (s *Session) handleBroadcast(msg ClientMessage) {
	room := s.registry.Get(s.roomCode)
	if room == nil {
		return
	}
	room.Broadcast(s.peerID, msg.Data)
}

func (s *Session) handleSyncDocument(msg ClientMessage) {
	room := s.registry.Get(s.roomCode)
	if room == nil {
		return
	}
	room.SetSnapshot(s.peerID, msg.Document)

	// Fire-and-forget: the persist is detached from the session's lifetime,
	// and a failure degrades to "snapshot may not survive restart".
	if s.persist != nil {
		roomCode, document := s.roomCode, msg.Document
		go func() {
			if err := s.persist(context.Background(), roomCode, document); err != nil && s.logger != nil {
				s.logger.Error("snapshot persist failed", "room_code", roomCode, "error", err)
			}
		}()
	}
}

func (s *Session) handleRequestSync() {
	room := s.registry.Get(s.roomCode)
	if room == nil {
		s.reply(ServerMessage{Type: TypeDocumentSync, Document: ""})
		return
	}
	doc, ok := room.Snapshot()
	if !ok {
		doc = ""
	}
	s.reply(ServerMessage{Type: TypeDocumentSync, Document: doc})
}

// leaveRoom removes this session's peer from its Room and tears down the
// bus subscription. Safe to call multiple times.
func (s *Session) leaveRoom() {
	if !s.bound {
		return
	}
	room := s.registry.Get(s.roomCode)
	if room != nil {
		room.Leave(s.peerID)
	}
	if s.sub != nil {
		// Closes the subscription channel, which ends the forwarder.
		s.sub.Close()
	}
	s.bound = false
	s.sub = nil
}

func (s *Session) cleanup() {
	s.leaveRoom()
	if s.forwarderDone != nil {
		// The forwarder writes into send; it must be gone before the close.
		<-s.forwarderDone
	}
	close(s.send)
}

func (s *Session) reply(msg ServerMessage) {
	select {
	case s.send <- msg:
	default:
		// Session's own outbound buffer is full; drop rather than block
		// the read loop. Delivery to slow peers is not guaranteed.
	}
}
