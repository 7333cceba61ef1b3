package view

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/a-h/templ"
)

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastWarning = "warning"
	ToastInfo    = "info"
)

var toastSeq atomic.Uint64

// Toast is a transient message shown in the corner of the page.
type Toast struct {
	ID      string
	Kind    string
	Message string
}

// NewToast creates a toast with a unique element id.
func NewToast(kind, message string) Toast {
	return Toast{ID: fmt.Sprintf("toast-%d", toastSeq.Add(1)), Kind: kind, Message: message}
}

// ToastFragment renders a toast. When selfExpiring is set the toast asks the
// server to remove it, which is how toasts on full page loads get dismissed.
func ToastFragment(t Toast, selfExpiring bool) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<div")
		h.attr("id", t.ID)
		h.attr("class", "toast toast-"+t.Kind)
		h.attr("role", "status")
		if selfExpiring {
			h.attr("data-init", "@get('/toasts/"+url.PathEscape(t.ID)+"/expire')")
		}
		h.raw(">")
		h.text(t.Message)
		h.raw("</div>")
	})
}
