// Package navigation builds the ordered section list a respondent walks
// through (spec.md §4.H). It is a pure function over whatever section-level
// Answers the Answer Store currently holds for one respondent: no storage
// access, no propagation, just ordering and prev/next bookkeeping — the
// flat-list analogue of a dependency-tree renderer's walk, with siblings
// replacing parent/child connectors since DisplayKey order already encodes
// the full navigation sequence.
package navigation

import (
	"sort"

	"github.com/surveyflow/engine/internal/surveytypes"
)

// Item is one stop in a respondent's navigation path (spec.md §4.H).
// Previous/Next are empty at the list's endpoints.
type Item struct {
	Name     string
	Path     string
	Previous string
	Next     string
}

// Build returns the ordered navigation list for sections, which must already
// be filtered to non-deleted, section-level Answers (QuestionID == nil,
// SectionID != 0) for one respondent. Build itself does not re-check either
// condition — callers (internal/survey) own the Answer Store query.
func Build(sections []*surveytypes.Answer) []Item {
	ordered := make([]*surveytypes.Answer, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].DisplayKey.Less(ordered[j].DisplayKey)
	})

	items := make([]Item, len(ordered))
	for i, a := range ordered {
		items[i] = Item{Name: a.DisplayText, Path: a.DisplayKey.String()}
	}
	for i := range items {
		if i > 0 {
			items[i].Previous = items[i-1].Path
		}
		if i < len(items)-1 {
			items[i].Next = items[i+1].Path
		}
	}
	return items
}

// Current returns the Item whose Path equals sectionKey, or nil if none
// matches — the "currently-selected NavigationItem" spec.md §4.H pairs
// alongside the built list.
func Current(items []Item, sectionKey string) *Item {
	for i := range items {
		if items[i].Path == sectionKey {
			return &items[i]
		}
	}
	return nil
}
