package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/identity"
	"github.com/msomdec/pyq-archive/internal/service"
	"github.com/msomdec/pyq-archive/internal/view"
)

// AuthHandler handles sign-in, registration and sign-out.
type AuthHandler struct {
	views        *service.ViewCache
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(views *service.ViewCache, cookieSecure bool) *AuthHandler {
	return &AuthHandler{views: views, cookieSecure: cookieSecure}
}

// HandleRoot sends the visitor to their role home or to the login page.
// GET /
func (h *AuthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sc := SessionFromContext(r.Context())
	res := service.Guard(sc.CurrentPrincipal(), sc.CurrentRole(), domain.RoleUnknown)
	if res.Decision == service.RenderChildren {
		http.Redirect(w, r, sc.CurrentRole().Home(), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, res.Location, http.StatusSeeOther)
}

// HandleLoginPage renders the login form. Signed-in users with a role go
// straight to their home.
// GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc.CurrentPrincipal() != nil {
		if role := sc.CurrentRole(); role != domain.RoleUnknown {
			http.Redirect(w, r, role.Home(), http.StatusSeeOther)
			return
		}
		view.LoginPage(sc.CurrentPrincipal().Email, "This account has no role assigned. Contact an administrator.").Render(r.Context(), w)
		return
	}
	view.LoginPage("", "").Render(r.Context(), w)
}

// HandleLogin processes the login form.
// POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	sc := SessionFromContext(r.Context())
	p, err := sc.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			w.WriteHeader(http.StatusUnauthorized)
			view.LoginPage(email, "Invalid email or password.").Render(r.Context(), w)
			return
		}
		slog.Error("login user", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		view.LoginPage(email, "An unexpected error occurred. Please try again.").Render(r.Context(), w)
		return
	}

	h.setAuthCookie(w, p.Token)
	http.Redirect(w, r, sc.CurrentRole().Home(), http.StatusSeeOther)
}

// HandleRegisterPage renders the registration form.
// GET /register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if sc.CurrentPrincipal() != nil && sc.CurrentRole() != domain.RoleUnknown {
		http.Redirect(w, r, sc.CurrentRole().Home(), http.StatusSeeOther)
		return
	}
	view.RegisterPage(view.RegisterForm{}, "").Render(r.Context(), w)
}

// HandleRegister creates the account and its role record, then signs the
// new user in.
// POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := view.RegisterForm{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
		Role:  r.FormValue("role"),
	}
	password := r.FormValue("password")

	if password != r.FormValue("confirm_password") {
		w.WriteHeader(http.StatusUnprocessableEntity)
		view.RegisterPage(form, "Passwords do not match.").Render(r.Context(), w)
		return
	}

	sc := SessionFromContext(r.Context())
	p, err := sc.Signup(r.Context(), form.Email, password, form.Name, domain.ParseRole(form.Role))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			w.WriteHeader(http.StatusConflict)
			view.RegisterPage(form, "An account with that email already exists.").Render(r.Context(), w)
		case errors.Is(err, domain.ErrInvalidInput):
			w.WriteHeader(http.StatusUnprocessableEntity)
			view.RegisterPage(form, inputMessage(err)).Render(r.Context(), w)
		default:
			slog.Error("register user", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			view.RegisterPage(form, "An unexpected error occurred. Please try again.").Render(r.Context(), w)
		}
		return
	}

	h.setAuthCookie(w, p.Token)
	http.Redirect(w, r, sc.CurrentRole().Home(), http.StatusSeeOther)
}

// HandleLogout signs out, drops the user's cached lists and clears the cookie.
// POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	if p := sc.CurrentPrincipal(); p != nil {
		h.views.Drop(p.ID)
	}
	if err := sc.Logout(r.Context()); err != nil {
		slog.Error("logout user", "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	http.Redirect(w, r, service.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(identity.SessionTTL.Seconds()),
	})
}

// inputMessage strips the sentinel prefix from a validation error.
func inputMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
		msg = msg[i+len(domain.ErrInvalidInput.Error())+2:]
	}
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
