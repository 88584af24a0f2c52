package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/ordering"
)

// ErrDuplicateLevel is returned when an authority declares a level label twice
var ErrDuplicateLevel = errors.New("duplicate level label")

// namespace scopes catalog resource ids
var namespace = uuid.MustParse("6f1c2b8e-3d4a-4f7b-9a51-0c2e8d7b6a10")

// SeedResource is one resource in the seed data
type SeedResource struct {
	Title  string              `json:"title"`
	Kind   domain.ResourceKind `json:"kind"`
	Link   string              `json:"link,omitempty"`
	Author string              `json:"author,omitempty"`
	Hint   domain.Hint         `json:"hint"`
}

// SeedLevel is one level in the seed data. Tier is optional; when nil it is
// derived from the label.
type SeedLevel struct {
	Label     string         `json:"label"`
	Tier      *domain.Tier   `json:"tier,omitempty"`
	Resources []SeedResource `json:"resources"`
}

// SeedAuthority is one authority in the seed data
type SeedAuthority struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Hint   domain.Hint `json:"hint"`
	Levels []SeedLevel `json:"levels"`
}

// Location identifies where a catalog resource lives
type Location struct {
	Authority string `json:"authority"`
	Level     string `json:"level"`
}

type authorityEntry struct {
	authority domain.Authority
	levels    []domain.Level
	resources map[string][]domain.Resource
}

// Store is the read-only authority → level → resource table
type Store struct {
	order   []string
	entries map[string]*authorityEntry
	byID    map[string]indexed
}

type indexed struct {
	resource domain.Resource
	loc      Location
}

// New builds a Store from seed data, preserving declaration order
func New(seed []SeedAuthority) (*Store, error) {
	s := &Store{
		entries: make(map[string]*authorityEntry),
		byID:    make(map[string]indexed),
	}

	for _, sa := range seed {
		if strings.TrimSpace(sa.ID) == "" {
			return nil, fmt.Errorf("authority %q: id is required", sa.Name)
		}
		if _, ok := s.entries[sa.ID]; ok {
			return nil, fmt.Errorf("authority %q declared twice", sa.ID)
		}

		e := &authorityEntry{
			authority: domain.Authority{ID: sa.ID, Name: sa.Name, Hint: sa.Hint},
			resources: make(map[string][]domain.Resource),
		}

		for _, sl := range sa.Levels {
			if _, ok := e.resources[sl.Label]; ok {
				return nil, fmt.Errorf("authority %q: %w: %q", sa.ID, ErrDuplicateLevel, sl.Label)
			}

			tier := ordering.TierFor(sl.Label)
			if sl.Tier != nil {
				tier = *sl.Tier
			}
			e.levels = append(e.levels, domain.Level{Label: sl.Label, Tier: tier})

			resources := make([]domain.Resource, 0, len(sl.Resources))
			for i, sr := range sl.Resources {
				if strings.TrimSpace(sr.Title) == "" {
					return nil, fmt.Errorf("authority %q level %q resource %d: title is required", sa.ID, sl.Label, i)
				}
				if !sr.Kind.Valid() {
					return nil, fmt.Errorf("authority %q level %q resource %q: unknown kind %q", sa.ID, sl.Label, sr.Title, sr.Kind)
				}

				// Position is part of the id so duplicate titles stay distinct
				r := domain.Resource{
					ID:     resourceID(sa.ID, sl.Label, i, sr.Title),
					Title:  sr.Title,
					Kind:   sr.Kind,
					Link:   sr.Link,
					Author: sr.Author,
					Hint:   sr.Hint,
				}
				resources = append(resources, r)
				s.byID[r.ID] = indexed{resource: r, loc: Location{Authority: sa.ID, Level: sl.Label}}
			}
			e.resources[sl.Label] = resources
		}

		s.order = append(s.order, sa.ID)
		s.entries[sa.ID] = e
	}

	return s, nil
}

// Default builds a Store from the bundled seed
func Default() *Store {
	s, err := New(Seed())
	if err != nil {
		panic(fmt.Sprintf("bundled seed is invalid: %v", err))
	}
	return s
}

// Load reads a JSON seed file. Arrays keep declaration order.
func Load(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed []SeedAuthority
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	return New(seed)
}

func resourceID(authority, level string, pos int, title string) string {
	key := strings.Join([]string{authority, level, strconv.Itoa(pos), title}, "\x1f")
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// Authorities returns all authorities in declaration order
func (s *Store) Authorities() []domain.Authority {
	out := make([]domain.Authority, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].authority)
	}
	return out
}

// Authority looks up a single authority
func (s *Store) Authority(id string) (domain.Authority, bool) {
	e, ok := s.entries[id]
	if !ok {
		return domain.Authority{}, false
	}
	return e.authority, true
}

// Levels returns an authority's levels in declared order. Callers sort with
// ordering.SortLevels before display.
func (s *Store) Levels(authorityID string) []domain.Level {
	e, ok := s.entries[authorityID]
	if !ok {
		return []domain.Level{}
	}
	return append([]domain.Level{}, e.levels...)
}

// Level looks up a level of an authority by label
func (s *Store) Level(authorityID, label string) (domain.Level, bool) {
	e, ok := s.entries[authorityID]
	if !ok {
		return domain.Level{}, false
	}
	for _, l := range e.levels {
		if l.Label == label {
			return l, true
		}
	}
	return domain.Level{}, false
}

// Resources returns the resources of one level. Unknown keys give an empty
// list.
func (s *Store) Resources(authorityID, level string) []domain.Resource {
	e, ok := s.entries[authorityID]
	if !ok {
		return []domain.Resource{}
	}
	return append([]domain.Resource{}, e.resources[level]...)
}

// Groups returns every level of an authority with its resources, in declared
// order, empty levels included
func (s *Store) Groups(authorityID string) []domain.Group[domain.Resource] {
	e, ok := s.entries[authorityID]
	if !ok {
		return []domain.Group[domain.Resource]{}
	}

	out := make([]domain.Group[domain.Resource], 0, len(e.levels))
	for _, l := range e.levels {
		out = append(out, domain.Group[domain.Resource]{
			Level: l,
			Items: append([]domain.Resource{}, e.resources[l.Label]...),
		})
	}
	return out
}

// Resource finds a catalog resource by id
func (s *Store) Resource(id string) (domain.Resource, Location, bool) {
	ix, ok := s.byID[id]
	return ix.resource, ix.loc, ok
}

// Tier reports the tier assigned to a level at construction. It satisfies
// derive.TierResolver.
func (s *Store) Tier(authorityID, level string) (domain.Tier, bool) {
	l, ok := s.Level(authorityID, level)
	return l.Tier, ok
}

// AuthorityName returns the display name of an authority
func (s *Store) AuthorityName(id string) (string, bool) {
	a, ok := s.Authority(id)
	return a.Name, ok
}
