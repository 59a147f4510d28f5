// Package http provides the JSON HTTP API over the catalog, session and team stores.
package http

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/karnan008/QA-Test-Manager/internal/middleware"
	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/service"
)

// SessionService defines the session operations required by the AuthHandler.
type SessionService interface {
	// Login reports false for wrong credentials or a disabled account.
	Login(ctx context.Context, email, password string) (service.Session, bool, error)
	// Logout ends only the session identified by token.
	Logout(ctx context.Context, token string) error
	Register(ctx context.Context, in models.NewUser) (service.Session, error)
}

// AuthHandler handles HTTP requests for login, registration and logout.
type AuthHandler struct {
	Session SessionService
	// Auth identifies the caller of Register when it asks for the admin role.
	Auth middleware.Authenticator
	Log  *zap.Logger
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned after a successful login or registration.
type SessionResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, ok, err := h.Session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeSession(w, http.StatusOK, sess)
}

// Register handles POST /api/register. Only an authenticated admin may
// register another admin.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.NewUser
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role == models.RoleAdmin && !h.callerIsAdmin(r) {
		writeMessage(w, http.StatusForbidden, "only administrators can register administrators")
		return
	}

	sess, err := h.Session.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeSession(w, http.StatusCreated, sess)
}

// Logout handles POST /api/logout. Other sessions stay valid.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.GetTokenFromContext(r.Context())
	if err := h.Session.Logout(r.Context(), token); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func writeSession(w http.ResponseWriter, status int, sess service.Session) {
	writeJSON(w, status, SessionResponse{User: sess.User, Token: sess.Token})
}

func (h *AuthHandler) callerIsAdmin(r *http.Request) bool {
	if h.Auth == nil {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	user, ok := h.Auth.Authenticate(token)
	return ok && user.IsAdmin()
}
