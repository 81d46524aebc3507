package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/rolegate/internal/domain/auth"
	apperrors "github.com/target/rolegate/internal/errors"
)

// Home page states.
const (
	PageLoginRequired = "login_required"
	PageAccessGranted = "access_granted"
	PageAccessDenied  = "access_denied"
)

// homeTemplate is the template name rendered by PageHandlers.Home.
const homeTemplate = "home"

// HomePage is the view model of the home page.
type HomePage struct {
	State    string
	UserName string
	Role     domainauth.Role
	Groups   []string
}

// PageHandlers serves the HTML surface and the gated API.
type PageHandlers struct {
	Ctrl     SessionAPI
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Home renders one of three states: sign-in required, access granted or access denied.
// A hard failure while resolving the role is reported as an error and no page is rendered.
// GET /.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	page := HomePage{State: PageLoginRequired}

	st, ok := GetSessionFromContext(r.Context())
	if ok && h.Ctrl.IsAuthenticated(st) {
		role, err := h.Ctrl.CurrentRole(r.Context(), st)
		switch {
		case err == nil:
			page.UserName = st.UserName
			page.Groups = st.ADGroups
			page.Role = role
			page.State = PageAccessDenied
			if role.MaySeeApp {
				page.State = PageAccessGranted
			}
		case apperrors.IsSoft(err):
			// Falls back to the sign-in prompt.
		default:
			h.logger().ErrorContext(r.Context(), "role lookup failed", "session_id", st.ID, "error", err)
			WriteAppError(w, err)
			return
		}
	}

	if err := h.Renderer.Render(w, http.StatusOK, homeTemplate, page); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type meResponse struct {
	UserName string   `json:"user_name"`
	Groups   []string `json:"groups"`
	Role     roleView `json:"role"`
}

// Me returns the signed-in user's profile. Mounted behind RequireAppAccess.
// GET /api/me.
func (h *PageHandlers) Me(w http.ResponseWriter, r *http.Request) {
	st, ok := GetSessionFromContext(r.Context())
	role, hasRole := GetRoleFromContext(r.Context())
	if !ok || !hasRole {
		writeAuthRequired(w)
		return
	}
	groups := st.ADGroups
	if groups == nil {
		groups = []string{}
	}
	WriteJSON(w, http.StatusOK, meResponse{
		UserName: st.UserName,
		Groups:   groups,
		Role:     roleView{RoleName: role.RoleName, MaySeeApp: role.MaySeeApp},
	})
}
