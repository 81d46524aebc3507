package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/rolegate/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Sessions SessionAPI
	Renderer *TemplateRenderer
	Cookie   SessionCookie
	// RegistryState is reported by /healthz (optional).
	RegistryState func() service.RegistryState
	Logger        *slog.Logger
}

// NewRouter creates the HTTP router. Everything except health and logout runs inside the
// caller's session, so an authorization code on any GET is consumed before routing.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authHandlers := &AuthHandlers{Ctrl: services.Sessions, Cookie: services.Cookie, Logger: logger}
	pageHandlers := &PageHandlers{Ctrl: services.Sessions, Renderer: services.Renderer, Logger: logger}

	app := http.NewServeMux()
	app.HandleFunc("GET /auth/login", authHandlers.Login)
	app.HandleFunc("GET /auth/status", authHandlers.Status)
	app.Handle("GET /api/me", RequireAppAccess(services.Sessions)(http.HandlerFunc(pageHandlers.Me)))
	app.HandleFunc("GET /{$}", pageHandlers.Home)

	mux := http.NewServeMux()
	health := healthHandler(services.RegistryState)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.Handle("/", Sessions(services.Sessions, services.Cookie, logger)(app))
	return mux
}
