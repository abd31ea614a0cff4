package record

import (
	"sort"

	"github.com/ginjaninja78/sped-toolkit/internal/types"
)

// DefaultPageSize is the number of matches shown per page.
const DefaultPageSize = 50

// =============================================================================
// SELECTION SET
// =============================================================================

// Selection is the set of body indices picked for a pending edit of one
// record type. It survives filter changes and is cleared after a commit.
type Selection struct {
	recordType string
	indices    map[int]struct{}
}

// NewSelection creates an empty selection for a record type.
func NewSelection(recordType string) *Selection {
	return &Selection{recordType: recordType, indices: make(map[int]struct{})}
}

// RecordType returns the record type the selection belongs to.
func (s *Selection) RecordType() string { return s.recordType }

// Add selects indices.
func (s *Selection) Add(indices ...int) {
	for _, i := range indices {
		s.indices[i] = struct{}{}
	}
}

// Remove deselects indices.
func (s *Selection) Remove(indices ...int) {
	for _, i := range indices {
		delete(s.indices, i)
	}
}

// Toggle flips one index and returns its new state.
func (s *Selection) Toggle(index int) bool {
	if s.Contains(index) {
		s.Remove(index)
		return false
	}
	s.Add(index)
	return true
}

// Contains reports whether an index is selected.
func (s *Selection) Contains(index int) bool {
	_, ok := s.indices[index]
	return ok
}

// Len returns the number of selected indices.
func (s *Selection) Len() int { return len(s.indices) }

// Indices returns the selected indices in ascending order.
func (s *Selection) Indices() []int {
	out := make([]int, 0, len(s.indices))
	for i := range s.indices {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.indices = make(map[int]struct{})
}

// SetPage selects or deselects every match shown on a page. Matches on
// other pages keep their state.
func (s *Selection) SetPage(p Page, selected bool) {
	for _, m := range p.Items {
		if selected {
			s.Add(m.Index)
		} else {
			s.Remove(m.Index)
		}
	}
}

// Selections keeps one independent selection per record type.
type Selections map[string]*Selection

// For returns the selection of a record type, creating it on first use.
func (ss Selections) For(recordType string) *Selection {
	s, ok := ss[recordType]
	if !ok {
		s = NewSelection(recordType)
		ss[recordType] = s
	}
	return s
}

// Targets returns the indices an edit should touch. When all is set every
// filtered match is targeted and the manual selection is ignored.
func Targets(all bool, sel *Selection, matches []types.Match) []int {
	if all {
		out := make([]int, len(matches))
		for i, m := range matches {
			out[i] = m.Index
		}
		return out
	}
	if sel == nil {
		return nil
	}
	return sel.Indices()
}

// =============================================================================
// PAGINATION
// =============================================================================

// Page is one window over a list of matches.
type Page struct {
	// Number is the 1-based page number after clamping.
	Number int

	// Pages is the total number of pages (at least 1).
	Pages int

	// TotalItems is the number of matches across all pages.
	TotalItems int

	// Items are the matches on this page.
	Items []types.Match
}

// Paginate returns page number page of matches. Out-of-range page numbers
// are clamped to the first or last page; perPage <= 0 uses
// DefaultPageSize.
func Paginate(matches []types.Match, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}

	pages := (len(matches) + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(matches) {
		end = len(matches)
	}

	return Page{
		Number:     page,
		Pages:      pages,
		TotalItems: len(matches),
		Items:      matches[start:end],
	}
}
