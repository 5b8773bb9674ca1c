package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fakduai/khun-phaen-sync/internal/auth"
	"github.com/fakduai/khun-phaen-sync/internal/contextkey"
	"github.com/fakduai/khun-phaen-sync/internal/httpx"
	"github.com/fakduai/khun-phaen-sync/internal/models"
)

// tokenLifetime is the JWT validity window.
const tokenLifetime = 7 * 24 * time.Hour

const authCookieName = "_khun_ph_token"

// HealthHandler reports process liveness plus the live room count.
func (r *Router) HealthHandler(w http.ResponseWriter, req *http.Request) {
	status := "ok"
	if err := r.store.Health(req.Context()); err != nil {
		status = "degraded"
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"rooms":     r.registry.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// tokenFromRequest extracts the JWT from the Authorization header, falling
// back to the session cookie.
func tokenFromRequest(req *http.Request) (string, error) {
	if header := req.Header.Get("Authorization"); header != "" {
		return auth.ExtractTokenFromHeader(header)
	}
	if cookie, err := req.Cookie(authCookieName); err == nil {
		return cookie.Value, nil
	}
	return "", errors.New("no credentials")
}

// AuthMiddleware validates the caller's JWT and stores identity in context.
func (r *Router) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		tokenString, err := tokenFromRequest(req)
		if err != nil {
			httpx.RespondError(w, http.StatusUnauthorized, "Not logged in")
			return
		}

		claims, err := r.jwtMgr.ValidateToken(tokenString)
		if err != nil {
			httpx.RespondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(req.Context(), contextkey.ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, contextkey.ContextKeyUserRole, claims.Role)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// AdminOnly gates a handler behind the admin role. Must run inside AuthMiddleware.
func (r *Router) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		role, _ := req.Context().Value(contextkey.ContextKeyUserRole).(string)
		if role != "admin" {
			httpx.RespondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func callerID(ctx context.Context) string {
	id, _ := ctx.Value(contextkey.ContextKeyUserID).(string)
	return id
}

// InviteRequest creates a new account. With a password the account is
// activated immediately; without one the response carries a setup link.
type InviteRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// InviteHandler creates accounts. While the user collection is empty it is
// gated by the one-shot X-Setup-Token header; afterwards it requires an
// administrator session.
func (r *Router) InviteHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	count, err := r.store.CountUsers(ctx)
	if err != nil {
		r.logger.Error(ctx, "invite: counting users failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if count == 0 {
		if r.cfg.InitialSetupToken == "" || req.Header.Get("X-Setup-Token") != r.cfg.InitialSetupToken {
			httpx.RespondError(w, http.StatusForbidden,
				"System initialization requires a valid setup token. Check INITIAL_SETUP_TOKEN in environment.")
			return
		}
	} else {
		tokenString, err := tokenFromRequest(req)
		if err != nil {
			httpx.RespondError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		claims, err := r.jwtMgr.ValidateToken(tokenString)
		if err != nil {
			httpx.RespondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if claims.Role != "admin" {
			httpx.RespondError(w, http.StatusForbidden, "Admin access required")
			return
		}
	}

	var ir InviteRequest
	if err := json.NewDecoder(req.Body).Decode(&ir); err != nil || ir.Email == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	existing, err := r.store.GetUserByEmail(ctx, ir.Email)
	if err != nil {
		r.logger.Error(ctx, "invite: looking up user failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if existing != nil {
		httpx.RespondError(w, http.StatusBadRequest, "User already exists")
		return
	}

	role := ir.Role
	if role == "" {
		if count == 0 {
			role = "admin" // the bootstrap account administers the system
		} else {
			role = "user"
		}
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    ir.Email,
		Nickname: ir.Nickname,
		Role:     role,
	}

	activated := false
	if ir.Password != "" {
		hash, err := auth.HashPassword(ir.Password)
		if err != nil {
			r.logger.Error(ctx, "invite: hashing password failed: %v", err)
			httpx.RespondError(w, http.StatusInternalServerError, "Failed to create user")
			return
		}
		user.PasswordHash = hash
		activated = true
	} else {
		user.SetupToken = uuid.NewString()
	}

	if err := r.store.CreateUser(ctx, &user); err != nil {
		r.logger.Error(ctx, "invite: creating user failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := r.store.UpsertUserProfile(ctx, &models.UserProfile{UserID: user.ID, DisplayName: user.Nickname}); err != nil {
		r.logger.Error(ctx, "invite: creating profile failed: %v", err)
	}

	if activated {
		httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"message":   "User account created and activated successfully",
			"activated": true,
		})
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Invitation created successfully",
		"setup_link": "/setup-password?token=" + user.SetupToken,
	})
}

// SetupPasswordHandler completes an invitation: the holder of a setup token
// sets their password, which consumes the token.
func (r *Router) SetupPasswordHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var payload struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Token == "" || payload.Password == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Token and password are required")
		return
	}

	user, err := r.store.GetUserBySetupToken(ctx, payload.Token)
	if err != nil {
		r.logger.Error(ctx, "setup-password: lookup failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid or expired setup token")
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		r.logger.Error(ctx, "setup-password: hashing failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to set password")
		return
	}

	user.PasswordHash = hash
	user.SetupToken = ""
	if err := r.store.UpdateUser(ctx, user); err != nil {
		r.logger.Error(ctx, "setup-password: update failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to set password")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "email": user.Email})
}

// SetupInfoHandler resolves a setup token to the invited email, so the
// setup page can show who is activating.
func (r *Router) SetupInfoHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	token := req.URL.Query().Get("token")
	if token == "" {
		httpx.RespondError(w, http.StatusBadRequest, "Token is required")
		return
	}

	user, err := r.store.GetUserBySetupToken(ctx, token)
	if err != nil {
		r.logger.Error(ctx, "setup-info: lookup failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid or expired setup token")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "email": user.Email})
}

// LoginHandler authenticates by email/password and issues a 7-day JWT,
// returned in the body and mirrored into the session cookie.
func (r *Router) LoginHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := r.store.GetUserByEmail(ctx, payload.Email)
	if err != nil {
		r.logger.Error(ctx, "login: lookup failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, payload.Password) {
		httpx.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := r.jwtMgr.GenerateToken(user.ID, user.Email, user.Role, tokenLifetime)
	if err != nil {
		r.logger.Error(ctx, "login: token generation failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokenLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	profile, err := r.store.GetUserProfile(ctx, user.ID)
	if err != nil {
		r.logger.Error(ctx, "login: profile lookup failed: %v", err)
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"token":   token,
		"profile": profile,
	})
}

// LogoutHandler clears the session cookie.
func (r *Router) LogoutHandler(w http.ResponseWriter, req *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MeHandler returns the authenticated user plus their profile.
func (r *Router) MeHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	user, err := r.store.GetUserByID(ctx, callerID(ctx))
	if err != nil {
		r.logger.Error(ctx, "me: lookup failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		httpx.RespondError(w, http.StatusUnauthorized, "User not found")
		return
	}

	profile, err := r.store.GetUserProfile(ctx, user.ID)
	if err != nil {
		r.logger.Error(ctx, "me: profile lookup failed: %v", err)
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"profile": profile,
	})
}

// UpdateMeHandler updates the caller's nickname, profile and optionally password.
func (r *Router) UpdateMeHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var payload struct {
		Nickname    string `json:"nickname"`
		DisplayName string `json:"display_name"`
		AvatarURL   string `json:"avatar_url"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := r.store.GetUserByID(ctx, callerID(ctx))
	if err != nil || user == nil {
		httpx.RespondError(w, http.StatusUnauthorized, "User not found")
		return
	}

	if payload.Nickname != "" {
		user.Nickname = payload.Nickname
	}
	if payload.Password != "" {
		hash, err := auth.HashPassword(payload.Password)
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}
		user.PasswordHash = hash
	}
	if err := r.store.UpdateUser(ctx, user); err != nil {
		r.logger.Error(ctx, "update me: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	if payload.DisplayName != "" || payload.AvatarURL != "" {
		profile := &models.UserProfile{UserID: user.ID, DisplayName: payload.DisplayName, AvatarURL: payload.AvatarURL}
		if profile.DisplayName == "" {
			profile.DisplayName = user.Nickname
		}
		if err := r.store.UpsertUserProfile(ctx, profile); err != nil {
			r.logger.Error(ctx, "update me: profile upsert failed: %v", err)
		}
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ListUsersHandler returns every account (admin only).
func (r *Router) ListUsersHandler(w http.ResponseWriter, req *http.Request) {
	users, err := r.store.ListUsers(req.Context())
	if err != nil {
		r.logger.Error(req.Context(), "list users: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": users})
}

// UpdateUserHandler updates another account's role or nickname (admin only).
func (r *Router) UpdateUserHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var payload struct {
		Nickname string `json:"nickname"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := r.store.GetUserByID(ctx, req.PathValue("id"))
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		httpx.RespondError(w, http.StatusNotFound, "User not found")
		return
	}

	if payload.Nickname != "" {
		user.Nickname = payload.Nickname
	}
	if payload.Role == "admin" || payload.Role == "user" {
		user.Role = payload.Role
	}
	if err := r.store.UpdateUser(ctx, user); err != nil {
		r.logger.Error(ctx, "update user: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeleteUserHandler removes an account and its profile (admin only).
func (r *Router) DeleteUserHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	id := req.PathValue("id")

	if id == callerID(ctx) {
		httpx.RespondError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	if err := r.store.DeleteUser(ctx, id); err != nil {
		r.logger.Error(ctx, "delete user: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if err := r.store.DeleteUserProfile(ctx, id); err != nil {
		r.logger.Error(ctx, "delete user profile: %v", err)
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
