package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "syllabus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFavorites_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sid, err := s.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	require.NoError(t, s.AddFavorite(ctx, sid, "r1"))
	require.NoError(t, s.AddFavorite(ctx, sid, "r2"))
	require.NoError(t, s.AddFavorite(ctx, sid, "r1"))

	ids, err := s.ListFavorites(ctx, sid)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, ids)

	require.NoError(t, s.RemoveFavorite(ctx, sid, "r1"))
	ids, err = s.ListFavorites(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids)
}

func TestFavorites_ScopedBySession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateSession(ctx)
	require.NoError(t, err)
	b, err := s.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, s.AddFavorite(ctx, a, "r1"))

	ids, err := s.ListFavorites(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFavorites_UnknownSessionRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.AddFavorite(context.Background(), "missing", "r1")
	assert.Error(t, err)
}

func TestEnsureSession_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureSession(ctx, "cli"))
	require.NoError(t, s.EnsureSession(ctx, "cli"))
	require.NoError(t, s.AddFavorite(ctx, "cli", "r1"))
}

func TestActivations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sid, err := s.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RecordActivation(ctx, sid, "r1", "https://example.org/a", false))
	require.NoError(t, s.RecordActivation(ctx, sid, "r2", "https://example.org/b", true))

	got, err := s.ListActivations(ctx, sid, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byResource := map[string]Activation{}
	for _, a := range got {
		byResource[a.ResourceID] = a
	}
	assert.False(t, byResource["r1"].Failed)
	assert.True(t, byResource["r2"].Failed)
	assert.Equal(t, "https://example.org/b", byResource["r2"].Link)

	limited, err := s.ListActivations(ctx, sid, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
