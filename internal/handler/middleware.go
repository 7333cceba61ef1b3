package handler

import (
	"context"
	"net/http"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
	"github.com/msomdec/pyq-archive/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

type contextKey string

const sessionContextKey contextKey = "session"

const authCookieName = "auth_token"

// SessionFromContext returns the session context of the request, or nil
// outside WithSession.
func SessionFromContext(ctx context.Context) *service.SessionContext {
	sc, _ := ctx.Value(sessionContextKey).(*service.SessionContext)
	return sc
}

// WithSession builds the session context from the auth_token cookie and
// waits for its first auth state before calling next. The context is closed
// when the request ends.
func WithSession(gateway domain.IdentityGateway, users domain.UserRepository, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(authCookieName); err == nil {
			token = cookie.Value
		}

		sc := service.NewSessionContext(gateway, users, token)
		defer sc.Close()

		if err := sc.Wait(r.Context()); err != nil {
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets the request through only when the session's principal
// holds required. Anyone else is sent to the login page or their own home.
// A RoleUnknown requirement admits any signed-in principal.
func RequireRole(required domain.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := SessionFromContext(r.Context())
		if sc == nil {
			redirect(w, r, service.LoginPath)
			return
		}

		res := service.Guard(sc.CurrentPrincipal(), sc.CurrentRole(), required)
		if res.Decision != service.RenderChildren {
			redirect(w, r, res.Location)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets the response headers every page carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// isDatastar reports whether the request was issued by a datastar action.
func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// redirect sends the browser to location, as an SSE redirect for datastar
// requests and a 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if isDatastar(r) {
		datastar.NewSSE(w, r).Redirect(location)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// viewer returns the navigation bar identity of the session.
func viewer(sc *service.SessionContext) *view.Viewer {
	p := sc.CurrentPrincipal()
	if p == nil {
		return nil
	}
	return &view.Viewer{Name: p.Name(), Role: sc.CurrentRole()}
}
