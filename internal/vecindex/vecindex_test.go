package vecindex

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func setupIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(":memory:", testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func unit(values ...float32) []float32 {
	v := make([]float32, testDim)
	copy(v, values)
	return v
}

func TestUpsertAndQuery(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	err := idx.Upsert(ctx, []Entry{
		{LinkID: "linkA", ChunkIndex: 0, Vector: unit(1, 0, 0), Excerpt: "alpha"},
		{LinkID: "linkA", ChunkIndex: 1, Vector: unit(0, 1, 0), Excerpt: "beta"},
		{LinkID: "linkB", ChunkIndex: 0, Vector: unit(0, 0, 1), Excerpt: "gamma"},
	})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, unit(1, 0, 0), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "linkA", matches[0].LinkID)
	assert.Equal(t, 0, matches[0].ChunkIndex)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "alpha", matches[0].Excerpt)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestQuery_NonPositiveLimit(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Entry{{LinkID: "l", ChunkIndex: 0, Vector: unit(1)}}))

	for _, limit := range []int{0, -1} {
		matches, err := idx.Query(ctx, unit(1), limit)
		require.NoError(t, err)
		assert.Empty(t, matches)
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	idx := setupIndex(t)

	matches, err := idx.Query(context.Background(), unit(1), 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	idx := setupIndex(t)

	err := idx.Upsert(context.Background(), []Entry{
		{LinkID: "l", ChunkIndex: 0, Vector: []float32{1, 2}},
	})
	assert.Error(t, err)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	idx := setupIndex(t)

	_, err := idx.Query(context.Background(), []float32{1, 2}, 5)
	assert.Error(t, err)
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Entry{{LinkID: "l", ChunkIndex: 0, Vector: unit(1), Excerpt: "old"}}))
	require.NoError(t, idx.Upsert(ctx, []Entry{{LinkID: "l", ChunkIndex: 0, Vector: unit(0, 1), Excerpt: "new"}}))

	count, err := idx.CountByLink(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := idx.Query(ctx, unit(0, 1), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Excerpt)
}

func TestUpsert_ExcerptClipsOnRuneBoundary(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	// 199 ASCII bytes followed by a 3-byte rune straddling the cap. The
	// stored excerpt must stop before the rune, not inside it.
	long := strings.Repeat("a", ExcerptLen-1) + "日本語"
	require.NoError(t, idx.Upsert(ctx, []Entry{
		{LinkID: "l", ChunkIndex: 0, Vector: unit(1), Excerpt: long},
	}))

	matches, err := idx.Query(ctx, unit(1), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, utf8.ValidString(matches[0].Excerpt))
	assert.Equal(t, strings.Repeat("a", ExcerptLen-1), matches[0].Excerpt)
	assert.LessOrEqual(t, len(matches[0].Excerpt), ExcerptLen)
}

func TestDeleteByLink(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Entry{
		{LinkID: "keep", ChunkIndex: 0, Vector: unit(1)},
		{LinkID: "drop", ChunkIndex: 0, Vector: unit(0, 1)},
		{LinkID: "drop", ChunkIndex: 1, Vector: unit(0, 0, 1)},
	}))

	require.NoError(t, idx.DeleteByLink(ctx, "drop"))
	require.NoError(t, idx.DeleteByLink(ctx, "never-existed"))

	count, err := idx.CountByLink(ctx, "drop")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = idx.CountByLink(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTrimBeyond(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []Entry{
		{LinkID: "l", ChunkIndex: 0, Vector: unit(1)},
		{LinkID: "l", ChunkIndex: 1, Vector: unit(0, 1)},
		{LinkID: "l", ChunkIndex: 2, Vector: unit(0, 0, 1)},
	}))

	require.NoError(t, idx.TrimBeyond(ctx, "l", 2))

	count, err := idx.CountByLink(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches, err := idx.Query(ctx, unit(0, 0, 1), 10)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Less(t, m.ChunkIndex, 2)
	}
}

func TestListLinkIDs(t *testing.T) {
	idx := setupIndex(t)
	ctx := context.Background()

	ids, err := idx.ListLinkIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, idx.Upsert(ctx, []Entry{
		{LinkID: "a", ChunkIndex: 0, Vector: unit(1)},
		{LinkID: "a", ChunkIndex: 1, Vector: unit(0, 1)},
		{LinkID: "b", ChunkIndex: 0, Vector: unit(0, 0, 1)},
	}))

	ids, err = idx.ListLinkIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{0.1, -2.5, 3.75, 0}
	assert.Equal(t, vector, deserializeVector(serializeVector(vector)))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
