package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fakduai/khun-phaen-sync/internal/httpx"
	"github.com/fakduai/khun-phaen-sync/internal/roomrt"
)

// CreateRoomRequest optionally pins the room code and host id; both are
// generated when absent. The call is idempotent per code.
type CreateRoomRequest struct {
	DesiredRoomCode string `json:"desired_room_code"`
	DesiredHostID   string `json:"desired_host_id"`
}

// CreateRoomHandler creates or restores a room. Rate-limited upstream.
func (r *Router) CreateRoomHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	// The body is optional; an empty body means generate everything.
	var cr CreateRoomRequest
	if err := json.NewDecoder(req.Body).Decode(&cr); err != nil && !errors.Is(err, io.EOF) {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := r.reviver.CreateRoom(ctx, cr.DesiredRoomCode, cr.DesiredHostID)
	if err != nil {
		r.logger.Error(ctx, "create room: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	_, hasDocument := result.Room.Snapshot()
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"room_code":     result.Room.Code,
		"room_id":       result.Room.ID,
		"host_id":       result.Room.HostID,
		"websocket_url": "/ws",
		"restored":      result.Restored,
		"has_document":  hasDocument,
	})
}

// GetRoomHandler returns a room's live state, reviving it from persisted
// state if it is not currently in the registry.
func (r *Router) GetRoomHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	code := req.PathValue("code")

	room, err := r.reviver.EnsureRoomExists(ctx, code)
	if err != nil {
		if errors.Is(err, roomrt.ErrInvalidRoomCode) {
			httpx.RespondError(w, http.StatusNotFound, "Room not found")
			return
		}
		r.logger.Error(ctx, "get room: revival failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to load room")
		return
	}

	peers := room.Peers()
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"room_code":  code,
		"host_id":    room.HostID,
		"peers":      peers,
		"created_at": room.CreatedAt,
		"peer_count": len(peers),
	})
}
