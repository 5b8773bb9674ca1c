package api

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/gorilla/websocket"

	"github.com/fakduai/khun-phaen-sync/internal/metrics"
	"github.com/fakduai/khun-phaen-sync/internal/roomrt"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Room membership is by code; origin checks are left to the
		// deployment's reverse proxy.
		return true
	},
}

// WebSocketHandler upgrades the connection and runs a peer session until
// disconnect. Joining happens in-protocol via the session's Join message;
// the upgrade itself is unauthenticated (room sharing is by code).
func (r *Router) WebSocketHandler(w http.ResponseWriter, req *http.Request) {
	_, span := otel.Tracer("websocket-server").Start(req.Context(), "WebSocketConnection")
	defer span.End()

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		span.SetStatus(codes.Error, "websocket upgrade failed")
		return
	}
	span.SetStatus(codes.Ok, "websocket connection established")

	metrics.ConnectedPeers.Inc()
	defer metrics.ConnectedPeers.Dec()

	persist := func(ctx context.Context, roomCode, document string) error {
		if err := r.store.UpsertRoomDocument(ctx, roomCode, document, time.Now().UTC()); err != nil {
			metrics.SnapshotPersists.WithLabelValues("failure").Inc()
			return err
		}
		metrics.SnapshotPersists.WithLabelValues("success").Inc()
		return nil
	}

	session := roomrt.NewSession(conn, r.registry, r.reviver, persist, r.logger.WithContext(req.Context()))

	// The session lives past this request; it is bounded by the process
	// context so shutdown reaches every connected peer.
	session.Run(r.baseCtx)
}
