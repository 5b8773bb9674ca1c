// Package api is the HTTP surface: thin handlers over the store, the room
// runtime and the auth layer, wired through a ServeMux with the middleware
// chain applied outermost.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fakduai/khun-phaen-sync/internal/auth"
	"github.com/fakduai/khun-phaen-sync/internal/cache"
	"github.com/fakduai/khun-phaen-sync/internal/config"
	"github.com/fakduai/khun-phaen-sync/internal/logging"
	"github.com/fakduai/khun-phaen-sync/internal/middleware"
	"github.com/fakduai/khun-phaen-sync/internal/roomrt"
	"github.com/fakduai/khun-phaen-sync/internal/store"
)

type Router struct {
	mux      *http.ServeMux
	store    *store.Store
	cache    *cache.Cache
	registry *roomrt.Registry
	reviver  *roomrt.Reviver
	jwtMgr   *auth.JWTManager
	cfg      *config.Config
	logger   *logging.Logger

	// baseCtx outlives individual requests; canceling it tells every live
	// websocket session to send a close frame and exit.
	baseCtx context.Context
}

// NewRouter creates the HTTP router with configured handlers and middleware.
func NewRouter(baseCtx context.Context, st *store.Store, redisCache *cache.Cache, registry *roomrt.Registry, reviver *roomrt.Reviver, jwtMgr *auth.JWTManager, cfg *config.Config, logger *logging.Logger) http.Handler {
	rateLimiter := middleware.NewRateLimiter(redisCache.GetClient(), int64(cfg.RateLimitBurst), cfg.RateLimitPerSecond)

	r := &Router{
		mux:      http.NewServeMux(),
		store:    st,
		cache:    redisCache,
		registry: registry,
		reviver:  reviver,
		jwtMgr:   jwtMgr,
		cfg:      cfg,
		logger:   logger,
		baseCtx:  baseCtx,
	}

	// Public endpoints
	r.mux.HandleFunc("GET /health", r.HealthHandler)
	r.mux.Handle("GET /metrics", promhttp.Handler())
	r.mux.HandleFunc("GET /ws", r.WebSocketHandler)

	// Rooms: creation is rate-limited by client IP; lookup auto-revives.
	r.mux.Handle("POST /api/rooms", rateLimiter.Middleware(http.HandlerFunc(r.CreateRoomHandler)))
	r.mux.HandleFunc("GET /api/rooms/{code}", r.GetRoomHandler)

	// Auth
	r.mux.HandleFunc("POST /api/auth/invite", r.InviteHandler)
	r.mux.HandleFunc("POST /api/auth/login", r.LoginHandler)
	r.mux.HandleFunc("POST /api/auth/logout", r.LogoutHandler)
	r.mux.HandleFunc("POST /api/auth/setup-password", r.SetupPasswordHandler)
	r.mux.HandleFunc("GET /api/auth/setup-info", r.SetupInfoHandler)
	r.mux.Handle("GET /api/auth/me", r.AuthMiddleware(http.HandlerFunc(r.MeHandler)))
	r.mux.Handle("PUT /api/auth/me", r.AuthMiddleware(http.HandlerFunc(r.UpdateMeHandler)))
	r.mux.Handle("GET /api/auth/users", r.AuthMiddleware(r.AdminOnly(http.HandlerFunc(r.ListUsersHandler))))
	r.mux.Handle("PUT /api/auth/users/{id}", r.AuthMiddleware(r.AdminOnly(http.HandlerFunc(r.UpdateUserHandler))))
	r.mux.Handle("DELETE /api/auth/users/{id}", r.AuthMiddleware(r.AdminOnly(http.HandlerFunc(r.DeleteUserHandler))))

	// Workspaces
	r.mux.Handle("GET /api/workspaces", r.AuthMiddleware(http.HandlerFunc(r.ListWorkspacesHandler)))
	r.mux.Handle("POST /api/workspaces", r.AuthMiddleware(http.HandlerFunc(r.CreateWorkspaceHandler)))
	r.mux.Handle("GET /api/workspaces/access/{room_code}", r.AuthMiddleware(http.HandlerFunc(r.WorkspaceAccessHandler)))
	r.mux.Handle("GET /api/workspaces/{id}", r.AuthMiddleware(http.HandlerFunc(r.GetWorkspaceHandler)))
	r.mux.Handle("PUT /api/workspaces/{id}", r.AuthMiddleware(http.HandlerFunc(r.UpdateWorkspaceHandler)))
	r.mux.Handle("DELETE /api/workspaces/{id}", r.AuthMiddleware(http.HandlerFunc(r.DeleteWorkspaceHandler)))
	r.mux.Handle("PUT /api/workspaces/{id}/notifications", r.AuthMiddleware(http.HandlerFunc(r.UpdateNotificationsHandler)))

	// Workspace-scoped task tracking data
	r.mux.Handle("GET /api/workspaces/{ws}/tasks", r.AuthMiddleware(http.HandlerFunc(r.ListTasksHandler)))
	r.mux.Handle("POST /api/workspaces/{ws}/tasks", r.AuthMiddleware(http.HandlerFunc(r.CreateTaskHandler)))
	r.mux.Handle("PUT /api/workspaces/{ws}/tasks/{id}", r.AuthMiddleware(http.HandlerFunc(r.UpdateTaskHandler)))
	r.mux.Handle("DELETE /api/workspaces/{ws}/tasks/{id}", r.AuthMiddleware(http.HandlerFunc(r.DeleteTaskHandler)))
	r.mux.Handle("GET /api/workspaces/{ws}/projects", r.AuthMiddleware(http.HandlerFunc(r.ListProjectsHandler)))
	r.mux.Handle("POST /api/workspaces/{ws}/projects", r.AuthMiddleware(http.HandlerFunc(r.CreateProjectHandler)))
	r.mux.Handle("PUT /api/workspaces/{ws}/projects/{id}", r.AuthMiddleware(http.HandlerFunc(r.UpdateProjectHandler)))
	r.mux.Handle("DELETE /api/workspaces/{ws}/projects/{id}", r.AuthMiddleware(http.HandlerFunc(r.DeleteProjectHandler)))
	r.mux.Handle("GET /api/workspaces/{ws}/assignees", r.AuthMiddleware(http.HandlerFunc(r.ListAssigneesHandler)))
	r.mux.Handle("POST /api/workspaces/{ws}/assignees", r.AuthMiddleware(http.HandlerFunc(r.CreateAssigneeHandler)))
	r.mux.Handle("PUT /api/workspaces/{ws}/assignees/{id}", r.AuthMiddleware(http.HandlerFunc(r.UpdateAssigneeHandler)))
	r.mux.Handle("DELETE /api/workspaces/{ws}/assignees/{id}", r.AuthMiddleware(http.HandlerFunc(r.DeleteAssigneeHandler)))
	r.mux.Handle("GET /api/workspaces/{ws}/sprints", r.AuthMiddleware(http.HandlerFunc(r.ListSprintsHandler)))
	r.mux.Handle("POST /api/workspaces/{ws}/sprints", r.AuthMiddleware(http.HandlerFunc(r.CreateSprintHandler)))
	r.mux.Handle("PUT /api/workspaces/{ws}/sprints/{id}", r.AuthMiddleware(http.HandlerFunc(r.UpdateSprintHandler)))
	r.mux.Handle("DELETE /api/workspaces/{ws}/sprints/{id}", r.AuthMiddleware(http.HandlerFunc(r.DeleteSprintHandler)))

	// Wrap with Request ID, then Tracing; Tracing is the outermost handler.
	handler := middleware.RequestID(r.mux)
	handler = middleware.Tracing(handler)

	return handler
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
