package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
	"github.com/msomdec/pyq-archive/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

// StudentHandler serves the catalog view.
type StudentHandler struct {
	catalog *service.Catalog
	views   *service.ViewCache
	toasts  *ToastHandler
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(catalog *service.Catalog, views *service.ViewCache, toasts *ToastHandler) *StudentHandler {
	return &StudentHandler{catalog: catalog, views: views, toasts: toasts}
}

// HandleDashboard loads every PYQ and renders the catalog.
// GET /student
func (h *StudentHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sc := SessionFromContext(r.Context())
	list := h.views.List(sc.CurrentPrincipal().ID, service.CatalogViewName)

	// Load failures are logged by the catalog; the previous list stays.
	_ = h.catalog.LoadAll(r.Context(), list)

	view.StudentDashboardPage(viewer(sc), h.catalogData(list, service.Filter{}), flashFromRequest(r)).Render(r.Context(), w)
}

// HandleFilter re-applies the filter signals to the loaded list.
// GET /student/pyqs/filter
func (h *StudentHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	var f service.Filter
	if err := datastar.ReadSignals(r, &f); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	sc := SessionFromContext(r.Context())
	list := h.views.List(sc.CurrentPrincipal().ID, service.CatalogViewName)
	if list.State() == service.ListIdle {
		_ = h.catalog.LoadAll(r.Context(), list)
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElementTempl(view.CatalogResults(h.catalogData(list, f)))
}

// HandleDownload counts the download and opens the file. The file is not
// opened when the count could not be recorded.
// POST /student/pyqs/{id}/download
func (h *StudentHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sc := SessionFromContext(r.Context())
	list := h.views.List(sc.CurrentPrincipal().ID, service.CatalogViewName)

	pyq, err := h.catalog.Download(r.Context(), list, id)

	if !isDatastar(r) {
		if err != nil {
			http.Redirect(w, r, "/student?flash="+flashDownloadFailed, http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, pyq.FileURL, http.StatusSeeOther)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err != nil {
		msg := "Download failed. Please try again."
		if errors.Is(err, domain.ErrNotFound) {
			msg = "This PYQ no longer exists."
		}
		h.toasts.show(r, sse, view.ToastError, msg)
		return
	}

	sse.PatchElementTempl(view.DownloadCount(pyq))
	target, _ := json.Marshal(pyq.FileURL)
	sse.ExecuteScript("window.open(" + string(target) + ", '_blank')")
}

func (h *StudentHandler) catalogData(list *service.ListView, f service.Filter) view.CatalogData {
	all := list.Records()
	return view.CatalogData{
		Records:   h.catalog.Filter(list, f),
		Total:     len(all),
		Facets:    service.ComputeFacets(all),
		Filter:    f,
		LoadError: list.State() == service.ListLoadError,
	}
}
