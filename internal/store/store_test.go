package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seen-labs/seen/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLink(id, url string) *types.Link {
	return &types.Link{
		ID:          id,
		URL:         url,
		BucketPath:  "content/" + id + ".html",
		ContentType: "text/html",
		Size:        1024,
		Title:       "Title " + id,
		Summary:     "Summary " + id,
		ChunkCount:  3,
	}
}

func TestInsertAndGetLink(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	link := testLink("abc123", "https://example.com/a")
	require.NoError(t, s.InsertLink(ctx, link))
	assert.False(t, link.CreatedAt.IsZero())

	got, err := s.GetLink(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.URL, got.URL)
	assert.Equal(t, link.BucketPath, got.BucketPath)
	assert.Equal(t, link.ContentType, got.ContentType)
	assert.Equal(t, link.Size, got.Size)
	assert.Equal(t, link.Title, got.Title)
	assert.Equal(t, link.Summary, got.Summary)
	assert.Equal(t, link.ChunkCount, got.ChunkCount)
}

func TestInsertLink_Duplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := testLink("dup", "https://example.com/first")
	require.NoError(t, s.InsertLink(ctx, first))

	second := testLink("dup", "https://example.com/second")
	err := s.InsertLink(ctx, second)
	assert.ErrorIs(t, err, types.ErrDuplicateLink)

	// The original row is untouched.
	got, err := s.GetLink(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/first", got.URL)
}

func TestGetLink_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetLink(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrLinkNotFound)
}

func TestGetLinkByURL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLink(ctx, testLink("abc", "https://example.com/page")))

	got, err := s.GetLinkByURL(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)

	_, err = s.GetLinkByURL(ctx, "https://example.com/other")
	assert.ErrorIs(t, err, types.ErrLinkNotFound)
}

func TestListRecent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		link := testLink(id, "https://example.com/"+id)
		link.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.InsertLink(ctx, link))
	}

	links, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "new", links[0].ID)
	assert.Equal(t, "mid", links[1].ID)

	links, err = s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestGetLinks_SkipsMissing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLink(ctx, testLink("a", "https://example.com/a")))
	require.NoError(t, s.InsertLink(ctx, testLink("b", "https://example.com/b")))

	links, err := s.GetLinks(ctx, []string{"b", "ghost", "a"})
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "b", links[0].ID)
	assert.Equal(t, "a", links[1].ID)
}

func TestCount(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.InsertLink(ctx, testLink("a", "https://example.com/a")))
	require.NoError(t, s.InsertLink(ctx, testLink("b", "https://example.com/b")))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteLink(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLink(ctx, testLink("a", "https://example.com/a")))
	require.NoError(t, s.DeleteLink(ctx, "a"))

	_, err := s.GetLink(ctx, "a")
	assert.ErrorIs(t, err, types.ErrLinkNotFound)

	err = s.DeleteLink(ctx, "a")
	assert.ErrorIs(t, err, types.ErrLinkNotFound)
}

func TestListIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLink(ctx, testLink("a", "https://example.com/a")))
	require.NoError(t, s.InsertLink(ctx, testLink("b", "https://example.com/b")))

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
