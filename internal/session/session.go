// Package session composes navigation, querying, derivation, favorites and
// link activation for one user session.
//
// A Session is owned by a single caller and is not safe for concurrent use.
// Only link activation runs in the background, and it touches nothing but
// the launcher, the logger and the optional history.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/syllabus/internal/catalog"
	"github.com/pbaille/syllabus/internal/derive"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/favorites"
	"github.com/pbaille/syllabus/internal/launcher"
	"github.com/pbaille/syllabus/internal/query"
	"github.com/pbaille/syllabus/internal/selection"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidLink matches every *InvalidLinkError
var ErrInvalidLink = errors.New("invalid resource link")

// InvalidLinkError reports a resource whose link cannot be opened. It is a
// warning: the resource stays in the catalog.
type InvalidLinkError struct {
	ResourceID string
	Link       string
}

func (e *InvalidLinkError) Error() string {
	if strings.TrimSpace(e.Link) == "" {
		return fmt.Sprintf("resource %s has no link", e.ResourceID)
	}
	return fmt.Sprintf("resource %s has an unopenable link %q", e.ResourceID, e.Link)
}

func (e *InvalidLinkError) Unwrap() error { return ErrInvalidLink }

// Mode picks the source a session queries
type Mode int

const (
	// ModeCatalog lists the stored catalog
	ModeCatalog Mode = iota
	// ModeDerived synthesizes resources with the derivation rules
	ModeDerived
)

// ParseMode accepts "catalog" or "derived"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "catalog":
		return ModeCatalog, nil
	case "derived":
		return ModeDerived, nil
	}
	return ModeCatalog, fmt.Errorf("unknown mode: %q", s)
}

func (m Mode) String() string {
	if m == ModeDerived {
		return "derived"
	}
	return "catalog"
}

// FavoriteStore persists favorites across runs
type FavoriteStore interface {
	AddFavorite(ctx context.Context, sessionID, resourceID string) error
	RemoveFavorite(ctx context.Context, sessionID, resourceID string) error
	ListFavorites(ctx context.Context, sessionID string) ([]string, error)
}

// History records link activations
type History interface {
	RecordActivation(ctx context.Context, sessionID, resourceID, link string, failed bool) error
}

// Session is one user's view of the catalog
type Session struct {
	id       string
	mode     Mode
	catalog  *catalog.Store
	rules    *derive.Rules
	launcher launcher.Launcher
	clock    derive.Clock
	log      *zap.Logger
	favStore FavoriteStore
	history  History

	state   selection.State
	favs    *favorites.Tracker
	derived map[string]domain.DerivedResource
}

// Option configures a Session
type Option func(*Session)

// WithID sets the session id used for persistence
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithMode picks catalog or derived results
func WithMode(m Mode) Option {
	return func(s *Session) { s.mode = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock sets the clock that supplies the selection year
func WithClock(c derive.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithFavoriteStore(fs FavoriteStore) Option {
	return func(s *Session) { s.favStore = fs }
}

func WithHistory(h History) Option {
	return func(s *Session) { s.history = h }
}

// New creates a session in the Unselected state
func New(cat *catalog.Store, rules *derive.Rules, l launcher.Launcher, opts ...Option) *Session {
	s := &Session{
		catalog:  cat,
		rules:    rules,
		launcher: l,
		clock:    derive.SystemClock{},
		log:      zap.NewNop(),
		favs:     favorites.New(),
		derived:  make(map[string]domain.DerivedResource),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Mode() Mode             { return s.mode }
func (s *Session) Phase() selection.Phase { return s.state.Phase() }

// Context snapshots the selection with the clock's current year
func (s *Session) Context() domain.SelectionContext {
	return s.state.Context(s.clock.CurrentYear())
}

// LoadFavorites restores persisted favorites into the tracker
func (s *Session) LoadFavorites(ctx context.Context) error {
	if s.favStore == nil {
		return nil
	}
	ids, err := s.favStore.ListFavorites(ctx, s.id)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	s.favs.Load(ids)
	return nil
}

// SelectAuthority moves the cursor to an authority, collapsing any level
func (s *Session) SelectAuthority(id string) {
	s.state.SelectAuthority(id)
	s.log.Debug("authority selected", zap.String("session", s.id), zap.String("authority", id))
}

// ToggleLevel expands or collapses a level
func (s *Session) ToggleLevel(level string) error {
	if err := s.state.ToggleLevel(level); err != nil {
		return err
	}
	s.log.Debug("level toggled",
		zap.String("session", s.id),
		zap.String("level", level),
		zap.Stringer("phase", s.state.Phase()))
	return nil
}

// SelectSubject narrows the expanded level to a subject
func (s *Session) SelectSubject(subject string) error {
	return s.state.SelectSubject(subject)
}

// End resets navigation when the session ends
func (s *Session) End() {
	s.state.Reset()
	s.derived = make(map[string]domain.DerivedResource)
}

// View is the result of evaluating a session. Exactly one of Catalog and
// Derived is populated, according to Mode.
type View struct {
	Mode    string                                 `json:"mode"`
	Context domain.SelectionContext                `json:"context"`
	Catalog []domain.Group[domain.Resource]        `json:"catalog,omitempty"`
	Derived []domain.Group[domain.DerivedResource] `json:"derived,omitempty"`
}

// Results evaluates the current selection with the given filters
func (s *Session) Results(ctx context.Context, text string, filter query.KindFilter) (*View, error) {
	v := &View{Mode: s.mode.String(), Context: s.Context()}

	if s.mode == ModeCatalog {
		v.Catalog = s.CatalogResults(text, filter)
		return v, nil
	}

	groups, err := s.DerivedResults(ctx, text, filter)
	if err != nil {
		return nil, err
	}
	v.Derived = groups
	return v, nil
}

// CatalogResults queries the stored catalog for the selected authority. The
// whole authority is returned; expansion is a presentation concern.
func (s *Session) CatalogResults(text string, filter query.KindFilter) []domain.Group[domain.Resource] {
	if s.state.Phase() == selection.Unselected {
		return []domain.Group[domain.Resource]{}
	}
	return query.Run(s.catalog.Groups(s.state.Authority()), text, filter)
}

// DerivedResults derives resources for the expanded level, or for every level
// of the authority when none is expanded
func (s *Session) DerivedResults(ctx context.Context, text string, filter query.KindFilter) ([]domain.Group[domain.DerivedResource], error) {
	sel := s.Context()

	var contexts []domain.SelectionContext
	switch s.state.Phase() {
	case selection.Unselected:
		return []domain.Group[domain.DerivedResource]{}, nil
	case selection.LevelExpanded:
		contexts = []domain.SelectionContext{sel}
	case selection.AuthoritySelected:
		for _, l := range s.catalog.Levels(sel.Authority) {
			c := sel
			c.Level = l.Label
			contexts = append(contexts, c)
		}
	}

	groups := make([]domain.Group[domain.DerivedResource], len(contexts))
	var g errgroup.Group
	for i, c := range contexts {
		g.Go(func() error {
			items, err := s.rules.Derive(c)
			if err != nil {
				return fmt.Errorf("derive %s/%s: %w", c.Authority, c.Level, err)
			}
			groups[i] = s.rules.Group(c, items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("derivation failed", zap.String("session", s.id), zap.Error(err))
		return nil, err
	}

	for _, grp := range groups {
		s.Remember(grp.Items...)
	}

	return query.Run(groups, text, filter), nil
}

// Remember makes derived entries produced outside the session resolvable by
// Find
func (s *Session) Remember(items ...domain.DerivedResource) {
	for _, item := range items {
		s.derived[item.ID] = item
	}
}

// Find resolves a resource id from the catalog or from derived results this
// session has produced
func (s *Session) Find(id string) (domain.Resource, bool) {
	if r, _, ok := s.catalog.Resource(id); ok {
		return r, true
	}
	if d, ok := s.derived[id]; ok {
		return d.Resource, true
	}
	return domain.Resource{}, false
}

// Activate hands a resource link to the launcher. An empty or unopenable link
// returns an *InvalidLinkError without launching. Otherwise the launch runs
// in the background and its outcome is delivered once on the returned
// channel; callers may ignore it. Failures are never retried.
func (s *Session) Activate(ctx context.Context, r domain.Resource) (<-chan error, error) {
	if strings.TrimSpace(r.Link) == "" || !s.launcher.CanOpen(r.Link) {
		s.log.Warn("resource link not openable",
			zap.String("session", s.id),
			zap.String("resource", r.ID),
			zap.String("link", r.Link))
		s.record(ctx, r, true)
		return nil, &InvalidLinkError{ResourceID: r.ID, Link: r.Link}
	}

	// The launch must not be cancelled with the request that triggered it
	bg := context.WithoutCancel(ctx)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := s.launcher.Open(bg, r.Link)
		if err != nil {
			s.log.Warn("resource open failed",
				zap.String("session", s.id),
				zap.String("resource", r.ID),
				zap.Error(err))
		}
		s.record(bg, r, err != nil)
		done <- err
	}()
	return done, nil
}

func (s *Session) record(ctx context.Context, r domain.Resource, failed bool) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordActivation(ctx, s.id, r.ID, r.Link, failed); err != nil {
		s.log.Error("record activation", zap.String("resource", r.ID), zap.Error(err))
	}
}

// ToggleFavorite flips a bookmark and persists it. When persistence fails
// the in-memory toggle is rolled back.
func (s *Session) ToggleFavorite(ctx context.Context, resourceID string) (bool, error) {
	on := s.favs.Toggle(resourceID)
	if s.favStore == nil {
		return on, nil
	}

	var err error
	if on {
		err = s.favStore.AddFavorite(ctx, s.id, resourceID)
	} else {
		err = s.favStore.RemoveFavorite(ctx, s.id, resourceID)
	}
	if err != nil {
		s.favs.Toggle(resourceID)
		return !on, fmt.Errorf("persist favorite: %w", err)
	}
	return on, nil
}

// IsFavorite reports whether a resource is bookmarked
func (s *Session) IsFavorite(resourceID string) bool {
	return s.favs.Contains(resourceID)
}

// Favorites returns bookmarked ids, sorted
func (s *Session) Favorites() []string {
	return s.favs.IDs()
}
