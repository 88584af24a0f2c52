// Package favorites holds a session's bookmarked resource ids.
package favorites

import "sort"

// Tracker is a set of resource ids. The zero value is an empty set. It is
// owned by a single session and is not safe for concurrent use.
type Tracker struct {
	ids map[string]struct{}
}

// New creates a Tracker seeded with ids
func New(ids ...string) *Tracker {
	t := &Tracker{ids: make(map[string]struct{}, len(ids))}
	t.Load(ids)
	return t
}

// Load adds ids without toggling
func (t *Tracker) Load(ids []string) {
	if t.ids == nil {
		t.ids = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
}

// Toggle flips membership of id and returns the new membership
func (t *Tracker) Toggle(id string) bool {
	if _, ok := t.ids[id]; ok {
		delete(t.ids, id)
		return false
	}
	if t.ids == nil {
		t.ids = make(map[string]struct{})
	}
	t.ids[id] = struct{}{}
	return true
}

// Contains reports membership
func (t *Tracker) Contains(id string) bool {
	_, ok := t.ids[id]
	return ok
}

// IDs returns the members sorted
func (t *Tracker) IDs() []string {
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (t *Tracker) Len() int { return len(t.ids) }
