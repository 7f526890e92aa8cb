package fuzzymatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := New(Config{Path: t.TempDir()})
	require.NoError(t, svc.Initialize(context.Background()))
	t.Cleanup(func() {
		_ = svc.Cleanup(context.Background())
	})
	return svc
}

func TestInitializeAndHealthcheck(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.Healthcheck(context.Background()))
}

func TestHealthcheckBeforeInitialize(t *testing.T) {
	svc := New(Config{Path: t.TempDir()})
	assert.Error(t, svc.Healthcheck(context.Background()))
}

func TestCleanupIdempotent(t *testing.T) {
	svc := New(Config{Path: t.TempDir()})
	require.NoError(t, svc.Initialize(context.Background()))
	require.NoError(t, svc.Cleanup(context.Background()))
	assert.NoError(t, svc.Cleanup(context.Background()))
}

func TestIndexAndSearch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entities := []Entity{
		{ID: "e1", Name: "Alice Johnson", Aliases: []string{"AJ"}},
		{ID: "e2", Name: "Alicia Keys"},
		{ID: "e3", Name: "Bob Smith"},
	}
	require.NoError(t, svc.IndexEntities(ctx, entities))

	matches, err := svc.Search(ctx, "alice", 10, 1)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	ids := make(map[string]bool)
	for _, m := range matches {
		ids[m.ID] = true
		assert.Greater(t, m.Score, 0.0)
	}
	assert.True(t, ids["e1"], "exact-ish match should be found")
}

func TestSearchFuzzyTypo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexEntities(ctx, []Entity{
		{ID: "e1", Name: "kubernetes"},
	}))

	// One edit away from the indexed term.
	matches, err := svc.Search(ctx, "kubernetes", 5, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)

	matches, err = svc.Search(ctx, "kubernetas", 5, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Search(context.Background(), "", 5, 1)
	assert.Error(t, err)
}

func TestIndexEntityValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.IndexEntities(ctx, []Entity{{ID: "", Name: "x"}})
	assert.Error(t, err)

	err = svc.IndexEntities(ctx, []Entity{{ID: "x", Name: ""}})
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.Documents)

	require.NoError(t, svc.IndexEntities(ctx, []Entity{
		{ID: "e1", Name: "one"},
		{ID: "e2", Name: "two"},
	}))

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Documents)
}

func TestRebuildKeepsDocuments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexEntities(ctx, []Entity{
		{ID: "e1", Name: "Alice Johnson", Aliases: []string{"AJ", "ally"}},
		{ID: "e2", Name: "Bob Smith"},
	}))

	require.NoError(t, svc.Rebuild(ctx))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Documents)

	matches, err := svc.Search(ctx, "alice", 5, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestReopenExistingIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc := New(Config{Path: dir})
	require.NoError(t, svc.Initialize(ctx))
	require.NoError(t, svc.IndexEntities(ctx, []Entity{{ID: "e1", Name: "persisted"}}))
	require.NoError(t, svc.Cleanup(ctx))

	again := New(Config{Path: dir})
	require.NoError(t, again.Initialize(ctx))
	defer again.Cleanup(ctx)

	stats, err := again.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Documents)
}
