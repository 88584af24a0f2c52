package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pbaille/syllabus/internal/catalog"
	"github.com/pbaille/syllabus/internal/derive"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/query"
	"github.com/pbaille/syllabus/internal/selection"
	"github.com/pbaille/syllabus/internal/session"
	"github.com/pbaille/syllabus/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLauncher struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (f *fakeLauncher) CanOpen(uri string) bool {
	return uri != "" && uri != "not a link"
}

func (f *fakeLauncher) Open(ctx context.Context, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, uri)
	return f.err
}

type failingFavorites struct{}

func (failingFavorites) AddFavorite(context.Context, string, string) error {
	return errors.New("disk full")
}
func (failingFavorites) RemoveFavorite(context.Context, string, string) error {
	return errors.New("disk full")
}
func (failingFavorites) ListFavorites(context.Context, string) ([]string, error) {
	return nil, nil
}

func newSession(t *testing.T, l *fakeLauncher, opts ...session.Option) (*session.Session, *catalog.Store) {
	t.Helper()
	cat := catalog.Default()
	rules := derive.New(derive.WithTierResolver(cat.Tier), derive.WithAuthorityName(cat.AuthorityName))
	opts = append([]session.Option{
		session.WithID("test"),
		session.WithLogger(zap.NewNop()),
		session.WithClock(derive.FixedClock(2024)),
	}, opts...)
	return session.New(cat, rules, l, opts...), cat
}

func levelLabels[T domain.Item](groups []domain.Group[T]) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Level.Label)
	}
	return out
}

func TestCatalogMode_Results(t *testing.T) {
	s, _ := newSession(t, &fakeLauncher{})
	ctx := context.Background()

	v, err := s.Results(ctx, "", query.All)
	require.NoError(t, err)
	assert.Empty(t, v.Catalog)

	s.SelectAuthority("cambridge")
	v, err = s.Results(ctx, "", query.All)
	require.NoError(t, err)
	assert.Equal(t, "catalog", v.Mode)
	assert.Equal(t, []string{"O-Level", "A-Level"}, levelLabels(v.Catalog))
	assert.Nil(t, v.Derived)

	v, err = s.Results(ctx, "9702", query.Books)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-Level"}, levelLabels(v.Catalog))
}

func TestDerivedMode_ExpandedLevelWithSubject(t *testing.T) {
	s, _ := newSession(t, &fakeLauncher{}, session.WithMode(session.ModeDerived))
	ctx := context.Background()

	s.SelectAuthority("fbise")
	require.NoError(t, s.ToggleLevel("Grade 10"))
	require.NoError(t, s.SelectSubject("math"))

	v, err := s.Results(ctx, "", query.All)
	require.NoError(t, err)
	require.Len(t, v.Derived, 1)
	assert.Equal(t, "Grade 10", v.Derived[0].Level.Label)
	assert.Len(t, v.Derived[0].Items, 10)
	assert.Contains(t, v.Derived[0].Items[0].Title, "Federal Board")
	assert.Equal(t, domain.SelectionContext{Authority: "fbise", Level: "Grade 10", Subject: "math", AsOfYear: 2024}, v.Context)
}

func TestDerivedMode_AllLevelsSorted(t *testing.T) {
	s, cat := newSession(t, &fakeLauncher{}, session.WithMode(session.ModeDerived))

	s.SelectAuthority("punjab")
	groups, err := s.DerivedResults(context.Background(), "", query.All)
	require.NoError(t, err)

	assert.Len(t, groups, len(cat.Levels("punjab")))
	assert.Equal(t, []string{"Kindergarten", "Grade 1", "Grade 5", "Grade 8", "Grade 9", "Grade 10", "Entry Test Prep", "Hifz Program"}, levelLabels(groups))

	papers, err := s.DerivedResults(context.Background(), "", query.Papers)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grade 9", "Grade 10"}, levelLabels(papers))
}

func TestDerivedMode_Unselected(t *testing.T) {
	s, _ := newSession(t, &fakeLauncher{}, session.WithMode(session.ModeDerived))
	groups, err := s.DerivedResults(context.Background(), "", query.All)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDerivedMode_UnknownAuthorityIsEmpty(t *testing.T) {
	s, _ := newSession(t, &fakeLauncher{}, session.WithMode(session.ModeDerived))
	s.SelectAuthority("nope")
	groups, err := s.DerivedResults(context.Background(), "", query.All)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestFind_DerivedAfterResults(t *testing.T) {
	s, cat := newSession(t, &fakeLauncher{}, session.WithMode(session.ModeDerived))

	catalogID := cat.Resources("fbise", "Grade 6")[0].ID
	r, ok := s.Find(catalogID)
	require.True(t, ok)
	assert.Equal(t, "English", r.Title)

	s.SelectAuthority("fbise")
	require.NoError(t, s.ToggleLevel("Grade 9"))
	groups, err := s.DerivedResults(context.Background(), "", query.All)
	require.NoError(t, err)

	id := groups[0].Items[0].ID
	r, ok = s.Find(id)
	require.True(t, ok)
	assert.Equal(t, domain.KindTextbook, r.Kind)

	s.End()
	assert.Equal(t, selection.Unselected, s.Phase())
	_, ok = s.Find(id)
	assert.False(t, ok)
}

func TestActivate_InvalidLinks(t *testing.T) {
	l := &fakeLauncher{}
	s, _ := newSession(t, l)

	for _, link := range []string{"", "not a link"} {
		done, err := s.Activate(context.Background(), domain.Resource{ID: "r1", Link: link})
		assert.Nil(t, done)
		require.Error(t, err)
		assert.True(t, errors.Is(err, session.ErrInvalidLink))

		var ile *session.InvalidLinkError
		require.True(t, errors.As(err, &ile))
		assert.Equal(t, "r1", ile.ResourceID)
	}
	assert.Empty(t, l.opened)
}

func TestActivate_LaunchesOnce(t *testing.T) {
	l := &fakeLauncher{}
	s, _ := newSession(t, l)

	done, err := s.Activate(context.Background(), domain.Resource{ID: "r1", Link: "https://example.org/a"})
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("launch did not complete")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Equal(t, []string{"https://example.org/a"}, l.opened)
}

func TestActivate_FailureIsReportedNotRetried(t *testing.T) {
	l := &fakeLauncher{err: errors.New("unreachable")}
	s, _ := newSession(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Activate(ctx, domain.Resource{ID: "r1", Link: "https://example.org/a"})
	require.NoError(t, err)
	cancel()

	assert.EqualError(t, <-done, "unreachable")
	_, open := <-done
	assert.False(t, open)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.opened, 1)
}

func TestToggleFavorite_InMemory(t *testing.T) {
	s, _ := newSession(t, &fakeLauncher{})
	ctx := context.Background()

	on, err := s.ToggleFavorite(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, s.IsFavorite("r1"))

	on, err = s.ToggleFavorite(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, s.Favorites())
}

func TestToggleFavorite_RollsBackOnPersistFailure(t *testing.T) {
	s, _ := newSession(t, &fakeLauncher{}, session.WithFavoriteStore(failingFavorites{}))

	on, err := s.ToggleFavorite(context.Background(), "r1")
	require.Error(t, err)
	assert.False(t, on)
	assert.False(t, s.IsFavorite("r1"))
}

func TestPersistence_WithSQLiteStore(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "syllabus.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	sid, err := st.CreateSession(ctx)
	require.NoError(t, err)

	l := &fakeLauncher{}
	s, cat := newSession(t, l, session.WithID(sid), session.WithFavoriteStore(st), session.WithHistory(st))

	r := cat.Resources("fbise", "Grade 9")[0]
	_, err = s.ToggleFavorite(ctx, r.ID)
	require.NoError(t, err)

	done, err := s.Activate(ctx, r)
	require.NoError(t, err)
	require.NoError(t, <-done)

	_, err = s.Activate(ctx, domain.Resource{ID: "broken"})
	require.ErrorIs(t, err, session.ErrInvalidLink)

	acts, err := st.ListActivations(ctx, sid, 10)
	require.NoError(t, err)
	assert.Len(t, acts, 2)

	// a fresh session with the same id sees the bookmark
	restored, _ := newSession(t, l, session.WithID(sid), session.WithFavoriteStore(st))
	require.NoError(t, restored.LoadFavorites(ctx))
	assert.Equal(t, []string{r.ID}, restored.Favorites())
}

func TestParseMode(t *testing.T) {
	m, err := session.ParseMode("Derived")
	require.NoError(t, err)
	assert.Equal(t, session.ModeDerived, m)

	m, err = session.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, session.ModeCatalog, m)

	_, err = session.ParseMode("cached")
	assert.Error(t, err)
}
