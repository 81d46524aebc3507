package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/target/rolegate/internal/domain/auth"
	apperrors "github.com/target/rolegate/internal/errors"
)

// Logging returns a middleware that logs HTTP requests and responses.
// Only the path is logged; the query may carry an authorization code.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionCookie describes the browser cookie carrying the session ID.
type SessionCookie struct {
	Name   string
	Domain string
	// TTL is the sliding lifetime renewed on every request.
	TTL time.Duration
}

func (c SessionCookie) set(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.TTL.Seconds()),
	})
}

// clear expires the cookie. It mirrors the attributes used by set.
func (c SessionCookie) clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// Sessions returns a middleware that runs every request inside the caller's session.
// A GET carrying an authorization code is consumed and redirected to the same URL without the
// authorization response parameters. The session is saved with a renewed lifetime afterwards.
func Sessions(ctrl SessionAPI, cookie SessionCookie, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookie.Name); err == nil {
				id = c.Value
			}

			handled := false
			_, err := ctrl.WithSession(r.Context(), id, func(st *domainauth.SessionState) error {
				handled = true
				cookie.set(w, r, st.ID)

				if r.Method == http.MethodGet {
					outcome, err := ctrl.OnRequest(r.Context(), st, r.URL)
					if err != nil {
						logger.ErrorContext(r.Context(), "sign-in failed", "session_id", st.ID, "error", err)
						WriteAppError(w, err)
						return nil
					}
					if outcome.Consumed {
						http.Redirect(w, r, outcome.CleanURL.RequestURI(), http.StatusFound)
						return nil
					}
				}

				next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), st)))
				return nil
			})
			if err == nil {
				return
			}
			logger.ErrorContext(r.Context(), "session handling failed", "error", err)
			if !handled {
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "session_unavailable",
					Err:     errors.New("session store unavailable"),
				})
			}
		})
	}
}

// RequireAppAccess returns a middleware that admits only signed-in users whose role may see
// the application. Anonymous sessions get 401, users without access 403.
func RequireAppAccess(ctrl SessionAPI) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, ok := GetSessionFromContext(r.Context())
			if !ok || !ctrl.IsAuthenticated(st) {
				writeAuthRequired(w)
				return
			}

			role, err := ctrl.CurrentRole(r.Context(), st)
			if err != nil {
				if apperrors.IsSoft(err) {
					writeAuthRequired(w)
					return
				}
				WriteAppError(w, err)
				return
			}
			if !role.MaySeeApp {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     apperrors.Forbidden("role " + role.RoleName + " may not use this application"),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(SetRoleInContext(r.Context(), role)))
		})
	}
}

func writeAuthRequired(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}
