package view

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
)

// AdminDashboardData is the admin landing page content.
type AdminDashboardData struct {
	Stats     service.Stats
	Recent    []domain.PyqRecord
	LoadError bool
}

// AdminDashboardPage renders the admin stats and the most recent uploads.
func AdminDashboardPage(v *Viewer, data AdminDashboardData, toasts []Toast) templ.Component {
	body := component(func(_ context.Context, h *htmlWriter) {
		h.raw("<h1>Welcome, ")
		h.text(v.Name)
		h.raw("</h1>")
		if data.LoadError {
			h.raw("<p class=\"error\">Some dashboard data could not be loaded.</p>")
		}
		h.raw("<div class=\"stats\">")
		statCard(h, "Total PYQs", data.Stats.Total)
		statCard(h, "Uploaded this week", data.Stats.RecentWeek)
		h.raw("</div>")
		h.raw("<p><a href=\"/admin/upload\">Upload a PYQ</a> · <a href=\"/admin/manage\">Manage PYQs</a></p>")

		h.raw("<h2>Recent uploads</h2>")
		if len(data.Recent) == 0 {
			h.raw("<p class=\"muted\">No uploads yet.</p>")
			return
		}
		h.raw("<table><thead><tr><th>Subject</th><th>Year</th><th>Semester</th><th>Exam type</th><th>Uploaded</th></tr></thead><tbody>")
		for _, p := range data.Recent {
			h.raw("<tr><td>")
			h.text(p.Subject)
			h.raw("</td><td>")
			h.text(strconv.Itoa(p.Year))
			h.raw("</td><td>")
			h.text(p.Semester)
			h.raw("</td><td>")
			h.text(p.ExamType)
			h.raw("</td><td>")
			h.text(p.UploadedAt.Format("Jan 2, 2006"))
			h.raw("</td></tr>")
		}
		h.raw("</tbody></table>")
	})
	return page("Admin", v, toasts, body)
}

// UploadPage renders the upload form. Field values are echoed back after a
// failed submission.
func UploadPage(v *Viewer, form service.UploadForm, years []int, errMsg string, toasts []Toast) templ.Component {
	body := component(func(_ context.Context, h *htmlWriter) {
		h.raw("<section class=\"card\"><h1>Upload a PYQ</h1>")
		formError(h, errMsg)
		h.raw("<form method=\"post\" action=\"/admin/upload\" enctype=\"multipart/form-data\">")

		h.raw("<label>Subject<input type=\"text\" name=\"subject\" required")
		h.attr("value", form.Subject)
		h.raw("></label>")

		h.raw("<label>Year<select name=\"year\" required><option value=\"\">Select year</option>")
		for _, y := range years {
			s := strconv.Itoa(y)
			option(h, s, s, form.Year)
		}
		h.raw("</select></label>")

		h.raw("<label>Semester<select name=\"semester\" required><option value=\"\">Select semester</option>")
		for _, s := range domain.Semesters {
			option(h, s, s+" semester", form.Semester)
		}
		h.raw("</select></label>")

		h.raw("<label>Exam type<select name=\"exam_type\" required><option value=\"\">Select exam type</option>")
		for _, s := range domain.ExamTypes {
			option(h, s, s, form.ExamType)
		}
		h.raw("</select></label>")

		h.raw("<label>Description<textarea name=\"description\" rows=\"3\">")
		h.text(form.Description)
		h.raw("</textarea></label>")

		h.raw("<label>PDF file<input type=\"file\" name=\"file\" accept=\"application/pdf\" required></label>")
		h.raw("<button type=\"submit\">Upload</button></form></section>")
	})
	return page("Upload", v, toasts, body)
}

// ManageData is the admin manage list content.
type ManageData struct {
	Records   []domain.PyqRecord // filtered
	Total     int
	Facets    service.Facets
	Filter    service.Filter
	LoadError bool
}

// ManagePage renders every PYQ with delete controls.
func ManagePage(v *Viewer, data ManageData, toasts []Toast) templ.Component {
	body := component(func(ctx context.Context, h *htmlWriter) {
		h.raw("<h1>Manage PYQs</h1><section")
		h.attr("data-signals", signalsJSON(data.Filter))
		h.raw(">")
		filterBar(h, "/admin/manage/filter", data.Facets)
		h.component(ctx, ManageResults(data))
		h.raw("</section>")
	})
	return page("Manage", v, toasts, body)
}

// ManageResults is the manage table, patched on every filter change.
func ManageResults(data ManageData) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw("<div id=\"manage-results\"><p class=\"muted\">")
		h.text("Showing " + strconv.Itoa(len(data.Records)) + " of " + strconv.Itoa(data.Total))
		h.raw("</p>")

		switch {
		case data.LoadError && data.Total == 0:
			h.raw("<p class=\"error\">Could not load question papers. Reload the page to try again.</p>")
			h.raw("</div>")
			return
		case len(data.Records) == 0:
			h.raw("<p class=\"muted\">No PYQs found.</p></div>")
			return
		}

		h.raw("<table><thead><tr><th>Subject</th><th>Year</th><th>Semester</th><th>Exam type</th><th>Uploaded by</th><th>Downloads</th><th></th></tr></thead><tbody>")
		for _, p := range data.Records {
			h.raw("<tr")
			h.attr("id", ManageRowID(p.ID))
			h.raw("><td>")
			h.text(p.Subject)
			if p.Description != "" {
				h.raw("<div class=\"muted\">")
				h.text(p.Description)
				h.raw("</div>")
			}
			h.raw("</td><td>")
			h.text(strconv.Itoa(p.Year))
			h.raw("</td><td>")
			h.text(p.Semester)
			h.raw("</td><td>")
			h.text(p.ExamType)
			h.raw("</td><td>")
			h.text(p.UploaderName)
			h.raw("</td><td>")
			h.text(strconv.FormatInt(p.DownloadCount, 10))
			h.raw("</td><td><a target=\"_blank\" rel=\"noopener\"")
			h.href(p.FileURL)
			h.raw(">View</a> ")

			action := "/admin/pyqs/" + p.ID + "/delete"
			h.raw("<form method=\"post\"")
			h.attr("action", action)
			h.attr("data-on:submit__prevent", "confirm('Delete this PYQ? This cannot be undone.') && @post('"+action+"?confirm=1')")
			h.raw("><button type=\"submit\">Delete</button></form></td></tr>")
		}
		h.raw("</tbody></table></div>")
	})
}

// ManageRowID is the element id of a record's manage table row.
func ManageRowID(id string) string {
	return "pyq-row-" + id
}
