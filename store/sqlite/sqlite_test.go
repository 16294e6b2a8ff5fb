package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/voucher-engine/exclusion"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleDecisions() *exclusion.DecisionSet {
	return &exclusion.DecisionSet{
		Titles: []exclusion.Decision{
			{Value: "Diretor", Exclude: true, Justification: "executive role"},
			{Value: "Analista", Exclude: false, Justification: "regular staff"},
		},
		Statuses: []exclusion.Decision{
			{Value: "Estagiário", Exclude: true, Justification: "intern"},
		},
	}
}

func TestCache_MissThenHit(t *testing.T) {
	// GIVEN an empty cache
	c := testCache(t)
	ctx := context.Background()
	key := "abc123"

	// THEN a lookup misses cleanly
	_, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	// WHEN decisions are stored
	require.NoError(t, c.Put(ctx, key, sampleDecisions()))

	// THEN the same key returns the same decisions
	got, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Titles, 2)
	assert.Equal(t, "Diretor", got.Titles[0].Value)
	assert.True(t, got.Titles[0].Exclude)
}

func TestCache_PutReplacesExisting(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", sampleDecisions()))
	replacement := &exclusion.DecisionSet{
		Titles: []exclusion.Decision{{Value: "Presidente", Exclude: true, Justification: "executive"}},
	}
	require.NoError(t, c.Put(ctx, "k", replacement))

	got, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Titles, 1)
	assert.Equal(t, "Presidente", got.Titles[0].Value)
}

func TestCache_KeysAreIndependent(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k1", sampleDecisions()))
	_, found, err := c.Get(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_SurvivesReopen(t *testing.T) {
	// The point of the sqlite store over the in-memory cache: decisions
	// outlive the process.
	dir := t.TempDir()
	path := filepath.Join(dir, "decisions.db")
	ctx := context.Background()

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "k", sampleDecisions()))
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	defer second.Close()

	_, found, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
}
