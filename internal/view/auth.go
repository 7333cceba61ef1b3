package view

import (
	"context"

	"github.com/a-h/templ"
	"github.com/msomdec/pyq-archive/internal/domain"
)

// RegisterForm echoes the non-secret registration fields back to the form.
type RegisterForm struct {
	Name  string
	Email string
	Role  string
}

// LoginPage renders the sign-in form.
func LoginPage(email, errMsg string) templ.Component {
	body := component(func(_ context.Context, h *htmlWriter) {
		h.raw("<section class=\"card auth\"><h1>Sign in</h1>")
		formError(h, errMsg)
		h.raw("<form method=\"post\" action=\"/login\">")
		h.raw("<label>Email<input type=\"email\" name=\"email\" required")
		h.attr("value", email)
		h.raw("></label>")
		h.raw("<label>Password<input type=\"password\" name=\"password\" required></label>")
		h.raw("<button type=\"submit\">Sign in</button></form>")
		h.raw("<p class=\"muted\">No account yet? <a href=\"/register\">Register</a></p></section>")
	})
	return page("Sign in", nil, nil, body)
}

// RegisterPage renders the sign-up form with a role selection.
func RegisterPage(form RegisterForm, errMsg string) templ.Component {
	body := component(func(_ context.Context, h *htmlWriter) {
		h.raw("<section class=\"card auth\"><h1>Create an account</h1>")
		formError(h, errMsg)
		h.raw("<form method=\"post\" action=\"/register\">")
		h.raw("<label>Full name<input type=\"text\" name=\"name\" required")
		h.attr("value", form.Name)
		h.raw("></label>")
		h.raw("<label>Email<input type=\"email\" name=\"email\" required")
		h.attr("value", form.Email)
		h.raw("></label>")
		h.raw("<label>Password<input type=\"password\" name=\"password\" minlength=\"6\" required></label>")
		h.raw("<label>Confirm password<input type=\"password\" name=\"confirm_password\" minlength=\"6\" required></label>")
		h.raw("<label>Role<select name=\"role\">")
		role := form.Role
		if role == "" {
			role = string(domain.RoleStudent)
		}
		option(h, string(domain.RoleStudent), "Student", role)
		option(h, string(domain.RoleAdmin), "Admin", role)
		h.raw("</select></label>")
		h.raw("<button type=\"submit\">Register</button></form>")
		h.raw("<p class=\"muted\">Already registered? <a href=\"/login\">Sign in</a></p></section>")
	})
	return page("Register", nil, nil, body)
}

func formError(h *htmlWriter, msg string) {
	if msg == "" {
		return
	}
	h.raw("<p class=\"error\" role=\"alert\">")
	h.text(msg)
	h.raw("</p>")
}

func option(h *htmlWriter, value, label, selected string) {
	h.raw("<option")
	h.attr("value", value)
	if value == selected {
		h.raw(" selected")
	}
	h.raw(">")
	h.text(label)
	h.raw("</option>")
}
