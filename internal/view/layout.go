package view

import (
	"context"

	"github.com/a-h/templ"
	"github.com/msomdec/pyq-archive/internal/domain"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Viewer is the signed-in user shown in the navigation bar.
type Viewer struct {
	Name string
	Role domain.Role
}

// page wraps body in the document shell. A nil viewer renders no navigation.
func page(title string, viewer *Viewer, toasts []Toast, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		h.raw("<title>")
		h.text(title + " | PYQ Archive")
		h.raw("</title>")
		h.raw("<script type=\"module\"")
		h.attr("src", datastarScript)
		h.raw("></script>")
		h.raw("<style>" + stylesheet + "</style>")
		h.raw("</head><body>")

		if viewer != nil {
			nav(h, viewer)
		}

		h.raw("<div id=\"toasts\" class=\"toasts\">")
		for _, t := range toasts {
			h.component(ctx, ToastFragment(t, true))
		}
		h.raw("</div>")

		h.raw("<main>")
		h.component(ctx, body)
		h.raw("</main></body></html>")
	})
}

func nav(h *htmlWriter, v *Viewer) {
	h.raw("<nav><a class=\"brand\"")
	h.href(v.Role.Home())
	h.raw(">PYQ Archive</a><div class=\"links\">")
	if v.Role == domain.RoleAdmin {
		h.raw("<a href=\"/admin\">Dashboard</a><a href=\"/admin/upload\">Upload</a><a href=\"/admin/manage\">Manage</a>")
	} else {
		h.raw("<a href=\"/student\">Browse</a>")
	}
	h.raw("</div><span class=\"who\">")
	h.text(v.Name)
	h.raw("</span><form method=\"post\" action=\"/logout\"><button type=\"submit\">Log out</button></form></nav>")
}

const stylesheet = `
body{font-family:system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1d1f23}
nav{display:flex;gap:1rem;align-items:center;padding:.75rem 1.5rem;background:#1f3b73;color:#fff}
nav a{color:#fff;text-decoration:none}nav .links{display:flex;gap:1rem;flex:1}
nav form{margin:0}main{max-width:1100px;margin:1.5rem auto;padding:0 1rem}
.card{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(280px,1fr));gap:1rem}
.stats{display:flex;gap:1rem;margin-bottom:1rem}.stats .card{flex:1}
.filters{display:flex;gap:.5rem;flex-wrap:wrap;margin-bottom:1rem}
table{width:100%;border-collapse:collapse;background:#fff}td,th{padding:.5rem;border-bottom:1px solid #e3e5e8;text-align:left}
.error{color:#b42318}.muted{color:#667085}
.toasts{position:fixed;top:1rem;right:1rem;display:flex;flex-direction:column;gap:.5rem;z-index:10}
.toast{padding:.75rem 1rem;border-radius:6px;color:#fff}
.toast-success{background:#12b76a}.toast-error{background:#d92d20}.toast-warning{background:#f79009}.toast-info{background:#2e90fa}
`
