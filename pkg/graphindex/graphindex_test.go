package graphindex

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

func TestAddEdgesAndStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b", Label: "knows"},
		{From: "b", To: "c", Weight: 2.5},
	}))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Edges)
}

func TestAddEdgeValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.Error(t, svc.AddEdges(ctx, []Edge{{From: "", To: "b"}}))
	assert.Error(t, svc.AddEdges(ctx, []Edge{{From: "a", To: "b/c"}}))
}

func TestNeighborsDepthOne(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
		{From: "b", To: "d"},
	}))

	neighbors, err := svc.Neighbors(ctx, "a", 1, DirectionOut)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	for _, n := range neighbors {
		assert.Equal(t, 1, n.Depth)
		assert.Contains(t, []string{"b", "c"}, n.Node)
	}
}

func TestNeighborsDepthTwo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "c", To: "d"},
	}))

	neighbors, err := svc.Neighbors(ctx, "a", 2, DirectionOut)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)

	byNode := make(map[string]int)
	for _, n := range neighbors {
		byNode[n.Node] = n.Depth
	}
	assert.Equal(t, 1, byNode["b"])
	assert.Equal(t, 2, byNode["c"])
}

func TestNeighborsIncoming(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "c", To: "b"},
	}))

	neighbors, err := svc.Neighbors(ctx, "b", 1, DirectionIn)
	require.NoError(t, err)
	assert.Len(t, neighbors, 2)

	both, err := svc.Neighbors(ctx, "b", 1, DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestNeighborsCycleTerminates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
	}))

	neighbors, err := svc.Neighbors(ctx, "a", 5, DirectionOut)
	require.NoError(t, err)
	assert.Len(t, neighbors, 1)
	assert.Equal(t, "b", neighbors[0].Node)
}

func TestShortestPath(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "a", To: "c"}, // direct shortcut
		{From: "c", To: "d"},
	}))

	path, err := svc.ShortestPath(ctx, "a", "d", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, path)
}

func TestShortestPathSameNode(t *testing.T) {
	svc := newTestService(t)

	path, err := svc.ShortestPath(context.Background(), "a", "a", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, path)
}

func TestShortestPathNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "c", To: "d"},
	}))

	path, err := svc.ShortestPath(ctx, "a", "d", 3)
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestShortestPathRespectsMaxDepth(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddEdges(ctx, []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "c", To: "d"},
	}))

	path, err := svc.ShortestPath(ctx, "a", "d", 2)
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	svc := New(Config{Path: dir})
	require.NoError(t, svc.Initialize(ctx))
	require.NoError(t, svc.AddEdges(ctx, []Edge{{From: "a", To: "b"}}))
	require.NoError(t, svc.Cleanup(ctx))

	again := New(Config{Path: dir})
	require.NoError(t, again.Initialize(ctx))
	defer again.Cleanup(ctx)

	stats, err := again.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Edges)
}
