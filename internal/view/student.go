package view

import (
	"context"
	"fmt"
	"strconv"

	"github.com/a-h/templ"
	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
)

// CatalogData is everything the student dashboard renders.
type CatalogData struct {
	Records   []domain.PyqRecord // filtered
	Total     int
	Facets    service.Facets
	Filter    service.Filter
	LoadError bool
}

// StudentDashboardPage renders the browsable catalog.
func StudentDashboardPage(v *Viewer, data CatalogData, toasts []Toast) templ.Component {
	body := component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<h1>Previous Year Question Papers</h1>")
		h.raw("<section")
		h.attr("data-signals", signalsJSON(data.Filter))
		h.raw(">")
		filterBar(h, "/student/pyqs/filter", data.Facets)
		h.component(ctx, CatalogResults(data))
		h.raw("</section>")
	})
	return page("Browse", v, toasts, body)
}

// CatalogResults is the counters and card grid, patched on every filter change.
func CatalogResults(data CatalogData) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<div id=\"catalog-results\"><div class=\"stats\">")
		statCard(h, "Total PYQs", data.Total)
		statCard(h, "Subjects", data.Facets.Subjects)
		statCard(h, "Filtered results", len(data.Records))
		h.raw("</div>")

		switch {
		case data.LoadError && data.Total == 0:
			h.raw("<p class=\"error\">Could not load question papers. Reload the page to try again.</p>")
		case len(data.Records) == 0:
			h.raw("<p class=\"muted\">No PYQs found. Try adjusting your filters.</p>")
		default:
			h.raw("<div class=\"grid\">")
			for i := range data.Records {
				pyqCard(ctx, h, &data.Records[i])
			}
			h.raw("</div>")
		}
		h.raw("</div>")
	})
}

func pyqCard(ctx context.Context, h *htmlWriter, p *domain.PyqRecord) {
	h.raw("<article class=\"card\"><h3>")
	h.text(p.Subject)
	h.raw("</h3><p class=\"muted\">")
	h.text(fmt.Sprintf("%d · %s semester · %s", p.Year, p.Semester, p.ExamType))
	h.raw("</p>")
	if p.Description != "" {
		h.raw("<p>")
		h.text(p.Description)
		h.raw("</p>")
	}
	h.raw("<p class=\"muted\">Uploaded by ")
	h.text(p.UploaderName)
	h.raw(" on ")
	h.text(p.UploadedAt.Format("Jan 2, 2006"))
	h.raw(" · ")
	h.component(ctx, DownloadCount(p))
	h.raw("</p>")

	action := "/student/pyqs/" + p.ID + "/download"
	h.raw("<form method=\"post\"")
	h.attr("action", action)
	h.attr("data-on:submit__prevent", "@post('"+action+"')")
	h.raw("><button type=\"submit\">Download PDF</button> <a target=\"_blank\" rel=\"noopener\"")
	h.href(p.FileURL)
	h.raw(">Preview</a></form></article>")
}

// DownloadCount renders the download counter of one record.
func DownloadCount(p *domain.PyqRecord) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<span")
		h.attr("id", DownloadCountID(p.ID))
		h.raw(">")
		h.text(strconv.FormatInt(p.DownloadCount, 10) + " downloads")
		h.raw("</span>")
	})
}

// DownloadCountID is the element id of a record's download counter.
func DownloadCountID(id string) string {
	return "downloads-" + id
}

// filterBar renders the search box and facet selects bound to the filter
// signals. Every change asks endpoint for a fresh result fragment.
func filterBar(h *htmlWriter, endpoint string, facets service.Facets) {
	fetch := "@get('" + endpoint + "')"
	h.raw("<div class=\"filters\">")
	h.raw("<input type=\"search\" placeholder=\"Search subject or description\" data-bind:search")
	h.attr("data-on:input__debounce.200ms", fetch)
	h.raw(">")

	h.raw("<select data-bind:year")
	h.attr("data-on:change", fetch)
	h.raw("><option value=\"\">All years</option>")
	for _, y := range facets.Years {
		s := strconv.Itoa(y)
		option(h, s, s, "")
	}
	h.raw("</select>")

	h.raw("<select data-bind:semester")
	h.attr("data-on:change", fetch)
	h.raw("><option value=\"\">All semesters</option>")
	for _, s := range facets.Semesters {
		option(h, s, s+" semester", "")
	}
	h.raw("</select>")

	h.raw("<select data-bind:exam-type")
	h.attr("data-on:change", fetch)
	h.raw("><option value=\"\">All exam types</option>")
	for _, s := range facets.ExamTypes {
		option(h, s, s, "")
	}
	h.raw("</select></div>")
}

func statCard(h *htmlWriter, label string, n int) {
	h.raw("<div class=\"card\"><div class=\"muted\">")
	h.text(label)
	h.raw("</div><strong>")
	h.text(strconv.Itoa(n))
	h.raw("</strong></div>")
}

// signalsJSON seeds the filter signals so a reload keeps the active filter.
func signalsJSON(f service.Filter) string {
	return fmt.Sprintf("{search: %s, year: %s, semester: %s, examType: %s}",
		strconv.Quote(f.Search), strconv.Quote(f.Year), strconv.Quote(f.Semester), strconv.Quote(f.ExamType))
}
