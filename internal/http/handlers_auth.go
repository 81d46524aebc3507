package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/service"
)

// SessionAPI is the part of the session controller the HTTP layer depends on.
type SessionAPI interface {
	WithSession(ctx context.Context, id string, fn func(st *domainauth.SessionState) error) (string, error)
	OnRequest(ctx context.Context, st *domainauth.SessionState, u *url.URL) (service.RequestOutcome, error)
	BeginLogin(ctx context.Context, st *domainauth.SessionState) (string, error)
	IsAuthenticated(st *domainauth.SessionState) bool
	CurrentRole(ctx context.Context, st *domainauth.SessionState) (domainauth.Role, error)
	Logout(ctx context.Context, id string) error
}

var _ SessionAPI = (*service.SessionController)(nil)

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Ctrl   SessionAPI
	Cookie SessionCookie
	Logger *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login starts the authorization-code flow.
// GET /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	st, ok := GetSessionFromContext(r.Context())
	if !ok {
		writeAuthRequired(w)
		return
	}
	if h.Ctrl.IsAuthenticated(st) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	authURL, err := h.Ctrl.BeginLogin(r.Context(), st)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Logout deletes the server-side session and clears the cookie.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.Cookie.Name); err == nil {
		if logoutErr := h.Ctrl.Logout(r.Context(), c.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	h.Cookie.clear(w, r)

	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": "/",
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type roleView struct {
	RoleName  string `json:"role_name"`
	MaySeeApp bool   `json:"may_see_app"`
}

type statusResponse struct {
	Authenticated bool      `json:"authenticated"`
	UserName      string    `json:"user_name,omitempty"`
	Role          *roleView `json:"role,omitempty"`
}

// Status returns the current authentication status and resolved role.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	st, ok := GetSessionFromContext(r.Context())
	if !ok || !h.Ctrl.IsAuthenticated(st) {
		WriteJSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}

	role, err := h.Ctrl.CurrentRole(r.Context(), st)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "role lookup failed", "session_id", st.ID, "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		UserName:      st.UserName,
		Role:          &roleView{RoleName: role.RoleName, MaySeeApp: role.MaySeeApp},
	})
}
