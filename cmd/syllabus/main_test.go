package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/pbaille/syllabus/internal/catalog"
	"github.com/pbaille/syllabus/internal/config"
	"github.com/pbaille/syllabus/internal/derive"
	"github.com/pbaille/syllabus/internal/domain"
	"github.com/pbaille/syllabus/internal/launcher"
	"github.com/pbaille/syllabus/internal/session"
	"github.com/pbaille/syllabus/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *app {
	cat := catalog.Default()
	clock := derive.FixedClock(2024)
	return &app{
		catalog: cat,
		clock:   clock,
		rules: derive.New(
			derive.WithClock(clock),
			derive.WithLinkBase("https://res.test"),
			derive.WithTierResolver(cat.Tier),
			derive.WithAuthorityName(cat.AuthorityName),
		),
	}
}

func TestResolve(t *testing.T) {
	a := newTestApp()
	want := a.catalog.Resources("cambridge", "O-Level")[0]

	got, err := a.resolve(want.ID, "")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = a.resolve(want.ID[:13], "")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)

	_, err = a.resolve("zzzz", "")
	assert.Error(t, err)

	// an empty prefix matches every resource
	_, err = a.resolve("", "")
	assert.ErrorContains(t, err, "ambiguous")
}

func TestResolve_DerivedPrefix(t *testing.T) {
	a := newTestApp()
	items, err := a.rules.Derive(domain.SelectionContext{Authority: "fbise", Level: "Grade 10", AsOfYear: 2024})
	require.NoError(t, err)
	require.NotEmpty(t, items)

	for _, want := range items {
		got, err := a.resolve(want.ID[:12], "")
		require.NoError(t, err, want.Title)
		assert.Equal(t, want.Resource, got)
	}
}

func TestResolve_SubjectScoped(t *testing.T) {
	a := newTestApp()
	items, err := a.rules.Derive(domain.SelectionContext{
		Authority: "fbise", Level: "Grade 10", Subject: "Mathematics", AsOfYear: 2024,
	})
	require.NoError(t, err)
	want := items[0]

	_, err = a.resolve(want.ID, "")
	assert.ErrorContains(t, err, "not found")

	got, err := a.resolve(want.ID[:12], "Mathematics")
	require.NoError(t, err)
	assert.Equal(t, want.Resource, got)
}

func TestFavCmd_ShortStoredID(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "syllabus.db")

	st, err := store.New(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, st.EnsureSession(ctx, "cli"))
	require.NoError(t, st.AddFavorite(ctx, "cli", "abc"))
	require.NoError(t, st.Close())

	a := &app{v: config.New()}
	cmd := a.rootCmd()
	cmd.SetArgs([]string{"fav", "--db", dbPath})
	assert.NoError(t, cmd.ExecuteContext(ctx))
}

func TestCapturingLauncher_FetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Grade 9 Physics</title></head><body><p>Chapter 1</p></body></html>"))
	}))
	defer srv.Close()

	a := newTestApp()
	l := &capturingLauncher{HTTP: launcher.NewHTTP()}
	sess := session.New(a.catalog, a.rules, l)

	done, err := sess.Activate(context.Background(), domain.Resource{ID: "r1", Title: "Physics", Link: srv.URL})
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.NotNil(t, l.page)
	assert.Equal(t, "Grade 9 Physics", l.page.Title)
	assert.Contains(t, l.page.Text, "Chapter 1")
	assert.Equal(t, int32(1), hits.Load())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "", shortID(""))
	assert.Equal(t, "0123abcd", shortID("0123abcd-ffff"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	urdu := "پاکستان کی تاریخ اور ثقافت"
	for n := 4; n < len(urdu); n++ {
		assert.True(t, utf8.ValidString(truncate(urdu, n)), "max=%d", n)
	}
}
