package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/pyq-archive/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

// Flash keys carried in the query string after a redirect. Only known keys
// produce a toast.
const (
	flashUploaded       = "uploaded"
	flashDeleted        = "deleted"
	flashDeleteFailed   = "delete-failed"
	flashDownloadFailed = "download-failed"
	flashConfirm        = "confirm"
)

var flashToasts = map[string]struct{ kind, message string }{
	flashUploaded:       {view.ToastSuccess, "PYQ uploaded successfully!"},
	flashDeleted:        {view.ToastSuccess, "PYQ deleted successfully."},
	flashDeleteFailed:   {view.ToastError, "Failed to delete PYQ. Please try again."},
	flashDownloadFailed: {view.ToastError, "Download failed. Please try again."},
	flashConfirm:        {view.ToastWarning, "Please confirm the deletion."},
}

// flashFromRequest returns the toast named by the request's flash parameter.
func flashFromRequest(r *http.Request) []view.Toast {
	f, ok := flashToasts[r.URL.Query().Get("flash")]
	if !ok {
		return nil
	}
	return []view.Toast{view.NewToast(f.kind, f.message)}
}

// ToastHandler dismisses toasts after a fixed interval.
type ToastHandler struct {
	duration time.Duration
}

// NewToastHandler creates a new ToastHandler.
func NewToastHandler(duration time.Duration) *ToastHandler {
	return &ToastHandler{duration: duration}
}

// HandleExpire holds an SSE stream open for the toast duration and then
// removes the toast. Closing the page cancels the removal.
// GET /toasts/{id}/expire
func (h *ToastHandler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !strings.HasPrefix(id, "toast-") {
		http.NotFound(w, r)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.dismiss(r, sse, id)
}

// show appends a toast to the page and removes it after the toast duration,
// unless the stream closes first.
func (h *ToastHandler) show(r *http.Request, sse *datastar.ServerSentEventGenerator, kind, message string) {
	t := view.NewToast(kind, message)
	if err := sse.PatchElementTempl(view.ToastFragment(t, false), datastar.WithSelectorID("toasts"), datastar.WithModeAppend()); err != nil {
		return
	}
	h.dismiss(r, sse, t.ID)
}

func (h *ToastHandler) dismiss(r *http.Request, sse *datastar.ServerSentEventGenerator, id string) {
	timer := time.NewTimer(h.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		sse.RemoveElementByID(id)
	case <-r.Context().Done():
	}
}
