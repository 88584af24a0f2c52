// Package query filters and groups catalog or derived resources by level.
package query

import (
	"fmt"
	"strings"

	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/ordering"
)

// KindFilter selects which resource kinds survive a query
type KindFilter string

const (
	All    KindFilter = "all"
	Books  KindFilter = "books"
	Papers KindFilter = "papers"
	Notes  KindFilter = "notes"
	Videos KindFilter = "videos"
)

var filterKinds = map[KindFilter][]domain.ResourceKind{
	Books:  {domain.KindTextbook},
	Papers: {domain.KindExamPaper, domain.KindModelPaper, domain.KindGuessPaper},
	Notes:  {domain.KindNotes, domain.KindDocument},
	Videos: {domain.KindVideo},
}

// ParseKindFilter accepts a named filter, a single kind name, or empty for All
func ParseKindFilter(s string) (KindFilter, error) {
	f := KindFilter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" || f == All {
		return All, nil
	}
	if _, ok := filterKinds[f]; ok {
		return f, nil
	}
	if domain.ResourceKind(f).Valid() {
		return f, nil
	}
	return "", fmt.Errorf("unknown kind filter: %q", s)
}

// Kinds returns the kinds the filter admits; nil means every kind
func (f KindFilter) Kinds() []domain.ResourceKind {
	if f == "" || f == All {
		return nil
	}
	if ks, ok := filterKinds[f]; ok {
		return ks
	}
	return []domain.ResourceKind{domain.ResourceKind(f)}
}

func (f KindFilter) admits(k domain.ResourceKind) bool {
	kinds := f.Kinds()
	if kinds == nil {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Matches reports whether a resource passes the text and kind filters. Text
// matches title or author case-insensitively; empty text matches everything.
func Matches(r domain.Resource, text string, filter KindFilter) bool {
	if !filter.admits(r.Kind) {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.Author), needle)
}

// Run filters src, regroups survivors by level label, drops empty levels and
// orders levels by curriculum rank. Groups sharing a label are merged in
// encounter order. The result is a valid source for another Run.
func Run[T domain.Item](src []domain.Group[T], text string, filter KindFilter) []domain.Group[T] {
	index := make(map[string]int)
	var out []domain.Group[T]

	for _, g := range src {
		for _, item := range g.Items {
			if !Matches(item.Base(), text, filter) {
				continue
			}
			i, ok := index[g.Level.Label]
			if !ok {
				i = len(out)
				index[g.Level.Label] = i
				out = append(out, domain.Group[T]{Level: g.Level})
			}
			out[i].Items = append(out[i].Items, item)
		}
	}

	ordering.SortStableFunc(out, func(g domain.Group[T]) string { return g.Level.Label })
	if out == nil {
		out = []domain.Group[T]{}
	}
	return out
}

// Count returns the number of items across all groups
func Count[T domain.Item](groups []domain.Group[T]) int {
	n := 0
	for _, g := range groups {
		n += len(g.Items)
	}
	return n
}
