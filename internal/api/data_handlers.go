package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fakduai/khun-phaen-sync/internal/httpx"
	"github.com/fakduai/khun-phaen-sync/internal/models"
)

// accessibleWorkspace loads a workspace and verifies the caller owns it or
// is one of its assignee users. Task-tracking data is shared with
// assignees, unlike workspace administration which is owner-only.
func (r *Router) accessibleWorkspace(ctx context.Context, w http.ResponseWriter, id string) *models.Workspace {
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

	caller := callerID(ctx)
	if ws.OwnerID == caller {
		return ws
	}
	for _, a := range ws.AssigneeUserIDs {
		if a == caller {
			return ws
		}
	}
	httpx.RespondError(w, http.StatusForbidden, "No access to this workspace")
	return nil
}

// --- Tasks ---

func (r *Router) ListTasksHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var (
		tasks []models.Task
		err   error
	)
	if req.URL.Query().Get("include_archived") == "true" {
		tasks, err = r.store.ListTasksByWorkspace(ctx, ws.ID)
	} else {
		tasks, err = r.store.ListNonArchivedTasksByWorkspace(ctx, ws.ID)
	}
	if err != nil {
		r.logger.Error(ctx, "list tasks: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tasks": tasks})
}

func (r *Router) CreateTaskHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var t models.Task
	if err := json.NewDecoder(req.Body).Decode(&t); err != nil || t.Title == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if t.Status == "" {
		t.Status = "todo"
	}
	t.ID = uuid.NewString()
	t.WorkspaceID = ws.ID

	if err := r.store.CreateTask(ctx, &t); err != nil {
		r.logger.Error(ctx, "create task: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "task": t})
}

func (r *Router) UpdateTaskHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	existing, err := r.store.GetTaskByID(ctx, req.PathValue("id"))
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if existing == nil || existing.WorkspaceID != ws.ID {
		httpx.RespondError(w, http.StatusNotFound, "Task not found")
		return
	}

	var t models.Task
	if err := json.NewDecoder(req.Body).Decode(&t); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t.ID = existing.ID
	t.WorkspaceID = ws.ID
	if t.Title == "" {
		t.Title = existing.Title
	}
	if t.Status == "" {
		t.Status = existing.Status
	}

	if err := r.store.UpdateTask(ctx, &t); err != nil {
		r.logger.Error(ctx, "update task: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "task": t})
}

func (r *Router) DeleteTaskHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	existing, err := r.store.GetTaskByID(ctx, req.PathValue("id"))
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if existing == nil || existing.WorkspaceID != ws.ID {
		httpx.RespondError(w, http.StatusNotFound, "Task not found")
		return
	}

	if err := r.store.DeleteTask(ctx, existing.ID); err != nil {
		r.logger.Error(ctx, "delete task: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// --- Projects ---

func (r *Router) ListProjectsHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}
	projects, err := r.store.ListProjectsByWorkspace(ctx, ws.ID)
	if err != nil {
		r.logger.Error(ctx, "list projects: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "projects": projects})
}

func (r *Router) CreateProjectHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var p models.Project
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil || p.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	p.ID = uuid.NewString()
	p.WorkspaceID = ws.ID

	if err := r.store.CreateProject(ctx, &p); err != nil {
		r.logger.Error(ctx, "create project: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "project": p})
}

func (r *Router) UpdateProjectHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var p models.Project
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil || p.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	p.ID = req.PathValue("id")
	p.WorkspaceID = ws.ID

	if err := r.store.UpdateProject(ctx, &p); err != nil {
		r.logger.Error(ctx, "update project: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update project")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "project": p})
}

func (r *Router) DeleteProjectHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}
	if err := r.store.DeleteProject(ctx, req.PathValue("id")); err != nil {
		r.logger.Error(ctx, "delete project: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// --- Assignees ---

func (r *Router) ListAssigneesHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}
	assignees, err := r.store.ListAssigneesByWorkspace(ctx, ws.ID)
	if err != nil {
		r.logger.Error(ctx, "list assignees: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "assignees": assignees})
}

func (r *Router) CreateAssigneeHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var a models.Assignee
	if err := json.NewDecoder(req.Body).Decode(&a); err != nil || a.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	a.ID = uuid.NewString()
	a.WorkspaceID = ws.ID

	if err := r.store.CreateAssignee(ctx, &a); err != nil {
		r.logger.Error(ctx, "create assignee: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create assignee")
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "assignee": a})
}

func (r *Router) UpdateAssigneeHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var a models.Assignee
	if err := json.NewDecoder(req.Body).Decode(&a); err != nil || a.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	a.ID = req.PathValue("id")
	a.WorkspaceID = ws.ID

	if err := r.store.UpdateAssignee(ctx, &a); err != nil {
		r.logger.Error(ctx, "update assignee: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update assignee")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "assignee": a})
}

func (r *Router) DeleteAssigneeHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}
	if err := r.store.DeleteAssignee(ctx, req.PathValue("id")); err != nil {
		r.logger.Error(ctx, "delete assignee: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete assignee")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// --- Sprints ---

func (r *Router) ListSprintsHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}
	sprints, err := r.store.ListSprintsByWorkspace(ctx, ws.ID)
	if err != nil {
		r.logger.Error(ctx, "list sprints: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sprints": sprints})
}

func (r *Router) CreateSprintHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var sp models.Sprint
	if err := json.NewDecoder(req.Body).Decode(&sp); err != nil || sp.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	sp.ID = uuid.NewString()
	sp.WorkspaceID = ws.ID

	if err := r.store.CreateSprint(ctx, &sp); err != nil {
		r.logger.Error(ctx, "create sprint: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create sprint")
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "sprint": sp})
}

func (r *Router) UpdateSprintHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}

	var sp models.Sprint
	if err := json.NewDecoder(req.Body).Decode(&sp); err != nil || sp.Name == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	sp.ID = req.PathValue("id")
	sp.WorkspaceID = ws.ID

	if err := r.store.UpdateSprint(ctx, &sp); err != nil {
		r.logger.Error(ctx, "update sprint: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update sprint")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "sprint": sp})
}

func (r *Router) DeleteSprintHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	ws := r.accessibleWorkspace(ctx, w, req.PathValue("ws"))
	if ws == nil {
		return
	}
	if err := r.store.DeleteSprint(ctx, req.PathValue("id")); err != nil {
		r.logger.Error(ctx, "delete sprint: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete sprint")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
