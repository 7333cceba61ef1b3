package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
	"github.com/msomdec/pyq-archive/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

const (
	recentUploads = 5

	// maxUploadBytes bounds the multipart body: the PDF limit plus room for
	// the metadata fields.
	maxUploadBytes = 21 << 20
)

// AdminHandler serves the admin console.
type AdminHandler struct {
	console *service.Console
	views   *service.ViewCache
	toasts  *ToastHandler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(console *service.Console, views *service.ViewCache, toasts *ToastHandler) *AdminHandler {
	return &AdminHandler{console: console, views: views, toasts: toasts}
}

// HandleDashboard renders the stats and the most recent uploads.
// GET /admin
func (h *AdminHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	var data view.AdminDashboardData

	// Failures are logged by the console; the page renders what loaded.
	stats, err := h.console.LoadStats(r.Context())
	if err != nil {
		data.LoadError = true
	}
	data.Stats = stats

	recent, err := h.console.LoadRecent(r.Context(), recentUploads)
	if err != nil {
		data.LoadError = true
	}
	data.Recent = recent

	view.AdminDashboardPage(viewer(sc), data, flashFromRequest(r)).Render(r.Context(), w)
}

// HandleUploadPage renders the empty upload form.
// GET /admin/upload
func (h *AdminHandler) HandleUploadPage(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	view.UploadPage(viewer(sc), service.UploadForm{}, service.YearOptions(time.Now()), "", flashFromRequest(r)).Render(r.Context(), w)
}

// HandleUpload stores the submitted PDF and its metadata.
// POST /admin/upload
func (h *AdminHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	years := service.YearOptions(time.Now())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		view.UploadPage(viewer(sc), service.UploadForm{}, years, "File is too large or the form is malformed.", nil).Render(r.Context(), w)
		return
	}

	form := service.UploadForm{
		Subject:     r.FormValue("subject"),
		Year:        r.FormValue("year"),
		Semester:    r.FormValue("semester"),
		ExamType:    r.FormValue("exam_type"),
		Description: r.FormValue("description"),
	}

	file, err := readUpload(r)
	if err != nil {
		slog.Error("read upload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		view.UploadPage(viewer(sc), form, years, "Could not read the uploaded file.", nil).Render(r.Context(), w)
		return
	}

	if _, err := h.console.Create(r.Context(), sc.CurrentPrincipal(), form, file); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			view.UploadPage(viewer(sc), form, years, inputMessage(err), nil).Render(r.Context(), w)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		toast := view.NewToast(view.ToastError, "Upload failed. Please try again.")
		view.UploadPage(viewer(sc), form, years, "", []view.Toast{toast}).Render(r.Context(), w)
		return
	}

	http.Redirect(w, r, "/admin/upload?flash="+flashUploaded, http.StatusSeeOther)
}

// readUpload returns the file part of the form, or nil when none was sent.
// The content type is sniffed from the bytes, not taken from the client.
func readUpload(r *http.Request) (*service.UploadFile, error) {
	f, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.UploadFile{
		Name:        header.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// HandleManage loads every PYQ and renders the manage table.
// GET /admin/manage
func (h *AdminHandler) HandleManage(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	list := h.views.List(sc.CurrentPrincipal().ID, service.ManageViewName)

	_ = h.console.LoadAll(r.Context(), list)

	view.ManagePage(viewer(sc), h.manageData(list, service.Filter{}), flashFromRequest(r)).Render(r.Context(), w)
}

// HandleManageFilter re-applies the filter signals to the loaded list.
// GET /admin/manage/filter
func (h *AdminHandler) HandleManageFilter(w http.ResponseWriter, r *http.Request) {
	var f service.Filter
	if err := datastar.ReadSignals(r, &f); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	sc := SessionFromContext(r.Context())
	list := h.views.List(sc.CurrentPrincipal().ID, service.ManageViewName)
	if list.State() == service.ListIdle {
		_ = h.console.LoadAll(r.Context(), list)
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElementTempl(view.ManageResults(h.manageData(list, f)))
}

// HandleDelete removes a PYQ after the admin confirmed it.
// POST /admin/pyqs/{id}/delete?confirm=1
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirmed := r.URL.Query().Get("confirm") == "1"

	sc := SessionFromContext(r.Context())
	list := h.views.List(sc.CurrentPrincipal().ID, service.ManageViewName)

	err := h.console.Delete(r.Context(), list, id, confirmed)

	if !isDatastar(r) {
		flash := flashDeleted
		switch {
		case errors.Is(err, domain.ErrConfirmationRequired):
			flash = flashConfirm
		case err != nil:
			flash = flashDeleteFailed
		}
		http.Redirect(w, r, "/admin/manage?flash="+flash, http.StatusSeeOther)
		return
	}

	// The filter signals ride along with the post; a missing body just
	// means no filter.
	var f service.Filter
	_ = datastar.ReadSignals(r, &f)

	sse := datastar.NewSSE(w, r)
	switch {
	case err == nil:
		sse.PatchElementTempl(view.ManageResults(h.manageData(list, f)))
		h.toasts.show(r, sse, view.ToastSuccess, "PYQ deleted successfully.")
	case errors.Is(err, domain.ErrConfirmationRequired):
		h.toasts.show(r, sse, view.ToastWarning, "Please confirm the deletion.")
	case errors.Is(err, domain.ErrNotFound):
		list.Remove(id)
		sse.PatchElementTempl(view.ManageResults(h.manageData(list, f)))
		h.toasts.show(r, sse, view.ToastWarning, "This PYQ was already removed.")
	default:
		h.toasts.show(r, sse, view.ToastError, "Failed to delete PYQ. Please try again.")
	}
}

func (h *AdminHandler) manageData(list *service.ListView, f service.Filter) view.ManageData {
	all := list.Records()
	return view.ManageData{
		Records:   h.console.Filter(list, f),
		Total:     len(all),
		Facets:    service.ComputeFacets(all),
		Filter:    f,
		LoadError: list.State() == service.ListLoadError,
	}
}
