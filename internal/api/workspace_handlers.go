package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fakduai/khun-phaen-sync/internal/httpx"
	"github.com/fakduai/khun-phaen-sync/internal/models"
	"github.com/fakduai/khun-phaen-sync/internal/roomrt"
)

// ownedWorkspace loads a workspace and verifies the caller owns it.
func (r *Router) ownedWorkspace(ctx context.Context, w http.ResponseWriter, id string) *models.Workspace {
	ws, err := r.store.GetWorkspaceByID(ctx, id)
	if err != nil {
		r.logger.Error(ctx, "workspace lookup failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return nil
	}
	if ws == nil {
		httpx.RespondError(w, http.StatusNotFound, "Workspace not found")
		return nil
	}
	if ws.OwnerID != callerID(ctx) {
		httpx.RespondError(w, http.StatusForbidden, "Not your workspace")
		return nil
	}
	return ws
}

// ListWorkspacesHandler returns the caller's workspaces.
func (r *Router) ListWorkspacesHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	workspaces, err := r.store.ListWorkspacesByOwner(ctx, callerID(ctx))
	if err != nil {
		r.logger.Error(ctx, "list workspaces: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "workspaces": workspaces})
}

// CreateWorkspaceHandler creates a workspace bound to a freshly generated
// room code.
func (r *Router) CreateWorkspaceHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	code, err := roomrt.GenerateRoomCode()
	if err != nil {
		r.logger.Error(ctx, "create workspace: generating room code: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create workspace")
		return
	}

	ws := models.Workspace{
		ID:       uuid.NewString(),
		Name:     payload.Name,
		OwnerID:  callerID(ctx),
		RoomCode: code,
	}
	if err := r.store.CreateWorkspace(ctx, &ws); err != nil {
		r.logger.Error(ctx, "create workspace: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create workspace")
		return
	}

	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "workspace": ws})
}

// GetWorkspaceHandler returns one workspace the caller owns.
func (r *Router) GetWorkspaceHandler(w http.ResponseWriter, req *http.Request) {
	ws := r.ownedWorkspace(req.Context(), w, req.PathValue("id"))
	if ws == nil {
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "workspace": ws})
}

// UpdateWorkspaceHandler renames a workspace or replaces its assignee users.
func (r *Router) UpdateWorkspaceHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	ws := r.ownedWorkspace(ctx, w, req.PathValue("id"))
	if ws == nil {
		return
	}

	var payload struct {
		Name            string   `json:"name"`
		AssigneeUserIDs []string `json:"assignee_user_ids"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Name != "" {
		ws.Name = payload.Name
	}
	if payload.AssigneeUserIDs != nil {
		ws.AssigneeUserIDs = payload.AssigneeUserIDs
	}
	if err := r.store.UpdateWorkspace(ctx, ws); err != nil {
		r.logger.Error(ctx, "update workspace: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update workspace")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "workspace": ws})
}

// DeleteWorkspaceHandler removes a workspace and everything hanging off it:
// the persisted room snapshot, the live Room, and all dependent tasks,
// projects, assignees and sprints.
func (r *Router) DeleteWorkspaceHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	ws := r.ownedWorkspace(ctx, w, req.PathValue("id"))
	if ws == nil {
		return
	}

	if err := r.store.DeleteRoomDocument(ctx, ws.RoomCode); err != nil {
		r.logger.Error(ctx, "delete workspace: room snapshot: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete workspace")
		return
	}
	if room := r.registry.Get(ws.RoomCode); room != nil {
		r.registry.Remove(ws.RoomCode, room)
	}

	for _, del := range []func(context.Context, string) error{
		r.store.DeleteTasksByWorkspace,
		r.store.DeleteProjectsByWorkspace,
		r.store.DeleteAssigneesByWorkspace,
		r.store.DeleteSprintsByWorkspace,
	} {
		if err := del(ctx, ws.ID); err != nil {
			r.logger.Error(ctx, "delete workspace: cascade: %v", err)
			httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete workspace")
			return
		}
	}

	if err := r.store.DeleteWorkspace(ctx, ws.ID); err != nil {
		r.logger.Error(ctx, "delete workspace: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete workspace")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UpdateNotificationsHandler replaces a workspace's digest configuration.
func (r *Router) UpdateNotificationsHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	ws := r.ownedWorkspace(ctx, w, req.PathValue("id"))
	if ws == nil {
		return
	}

	var cfg models.NotificationConfig
	if err := json.NewDecoder(req.Body).Decode(&cfg); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, d := range cfg.Days {
		if d < 0 || d > 6 {
			httpx.RespondError(w, http.StatusBadRequest, "Days must be 0 (Sunday) through 6 (Saturday)")
			return
		}
	}

	// last_sent_at is owned by the digest scheduler; a config write must
	// not be able to reset the idempotence window.
	if ws.NotificationConfig != nil {
		cfg.LastSentAt = ws.NotificationConfig.LastSentAt
	}
	ws.NotificationConfig = &cfg
	if err := r.store.UpdateWorkspace(ctx, ws); err != nil {
		r.logger.Error(ctx, "update notifications: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update notifications")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "notification_config": cfg})
}

// WorkspaceAccessHandler reports whether the caller may use the workspace
// bound to a room code: true iff they own it or are listed as an assignee.
func (r *Router) WorkspaceAccessHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	ok, err := r.store.WorkspaceAccess(ctx, req.PathValue("room_code"), callerID(ctx))
	if err != nil {
		r.logger.Error(ctx, "workspace access check: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "access": ok})
}
