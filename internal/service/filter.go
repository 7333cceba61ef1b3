package service

import (
	"slices"
	"strconv"
	"strings"

	"github.com/msomdec/pyq-archive/internal/domain"
)

// Filter narrows a loaded PYQ list. Empty fields match everything.
type Filter struct {
	Search   string `json:"search"`
	Year     string `json:"year"`
	Semester string `json:"semester"`
	ExamType string `json:"examType"`
}

// Predicate reports whether a record passes one filter criterion.
type Predicate func(p *domain.PyqRecord) bool

// IsEmpty reports whether the filter has no active criteria.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && f.Year == "" && f.Semester == "" && f.ExamType == ""
}

// Predicates returns the four criteria of f. They are independent, so they
// can be applied in any order.
func (f Filter) Predicates() []Predicate {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	return []Predicate{
		func(p *domain.PyqRecord) bool {
			return search == "" ||
				strings.Contains(strings.ToLower(p.Subject), search) ||
				strings.Contains(strings.ToLower(p.Description), search)
		},
		func(p *domain.PyqRecord) bool {
			return f.Year == "" || strconv.Itoa(p.Year) == f.Year
		},
		func(p *domain.PyqRecord) bool {
			return f.Semester == "" || p.Semester == f.Semester
		},
		func(p *domain.PyqRecord) bool {
			return f.ExamType == "" || p.ExamType == f.ExamType
		},
	}
}

// Match reports whether p passes every criterion.
func (f Filter) Match(p *domain.PyqRecord) bool {
	for _, pred := range f.Predicates() {
		if !pred(p) {
			return false
		}
	}
	return true
}

// Apply returns the records matching f, keeping their order. The input is
// not modified.
func (f Filter) Apply(records []domain.PyqRecord) []domain.PyqRecord {
	return ApplyPredicates(records, f.Predicates()...)
}

// ApplyPredicates keeps the records that satisfy every predicate.
func ApplyPredicates(records []domain.PyqRecord, preds ...Predicate) []domain.PyqRecord {
	out := make([]domain.PyqRecord, 0, len(records))
next:
	for i := range records {
		for _, pred := range preds {
			if !pred(&records[i]) {
				continue next
			}
		}
		out = append(out, records[i])
	}
	return out
}

// Facets are the distinct filter options present in a loaded list.
type Facets struct {
	Years     []int
	Semesters []string
	ExamTypes []string
	Subjects  int
}

// ComputeFacets derives filter options from records. Years are newest first;
// semesters and exam types follow their canonical order.
func ComputeFacets(records []domain.PyqRecord) Facets {
	years := make(map[int]bool)
	semesters := make(map[string]bool)
	examTypes := make(map[string]bool)
	subjects := make(map[string]bool)

	for _, p := range records {
		years[p.Year] = true
		semesters[p.Semester] = true
		examTypes[p.ExamType] = true
		subjects[strings.ToLower(strings.TrimSpace(p.Subject))] = true
	}

	f := Facets{Subjects: len(subjects)}
	for y := range years {
		f.Years = append(f.Years, y)
	}
	slices.Sort(f.Years)
	slices.Reverse(f.Years)

	f.Semesters = ordered(domain.Semesters, semesters)
	f.ExamTypes = ordered(domain.ExamTypes, examTypes)
	return f
}

// ordered returns the members of present in canonical order, followed by
// any values outside it sorted alphabetically.
func ordered(canonical []string, present map[string]bool) []string {
	var out []string
	for _, v := range canonical {
		if present[v] {
			out = append(out, v)
		}
	}
	var extra []string
	for v := range present {
		if !slices.Contains(canonical, v) {
			extra = append(extra, v)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
