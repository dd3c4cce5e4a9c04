package sqlite_store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haileyok/brandwatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPost(id string) *models.Post {
	return &models.Post{
		ID:             id,
		Platform:       models.PlatformTwitter,
		AuthorID:       "42",
		CreatedAt:      "2025-08-30T12:00:00Z",
		Text:           "KitKat is great",
		Lang:           "en",
		SentimentScore: 0.62,
		SentimentLabel: "positive",
		RawJSON:        []byte(`{"id":"` + id + `"}`),
	}
}

func TestInsertIfAbsentFirstWriteWins(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	inserted, err := store.InsertIfAbsent(ctx, testPost("A"))
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := testPost("A")
	dup.Text = "rewritten text"
	dup.SentimentScore = -0.9
	dup.SentimentLabel = "negative"

	inserted, err = store.InsertIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	posts, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	assert.Equal(t, "A", posts[0].ID)
	assert.Equal(t, "KitKat is great", posts[0].Text)
	assert.Equal(t, 0.62, posts[0].SentimentScore)
	assert.Equal(t, "positive", posts[0].SentimentLabel)
	assert.NotEmpty(t, posts[0].FetchedAt)
}

func TestInsertPersistsAllFields(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	_, err = store.InsertIfAbsent(ctx, testPost("A"))
	require.NoError(t, err)

	posts, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, models.PlatformTwitter, p.Platform)
	assert.Equal(t, "42", p.AuthorID)
	assert.Empty(t, p.AuthorName)
	assert.Equal(t, "2025-08-30T12:00:00Z", p.CreatedAt)
	assert.Equal(t, "en", p.Lang)
	assert.JSONEq(t, `{"id":"A"}`, string(p.RawJSON))
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)

	_, err = store.InsertIfAbsent(ctx, testPost("A"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	posts, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "A", posts[0].ID)

	// and the dedup constraint still holds on the reopened database
	inserted, err := store.InsertIfAbsent(ctx, testPost("A"))
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "posts.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.InsertIfAbsent(context.Background(), testPost("A"))
	require.NoError(t, err)
}

func TestListRecentLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		_, err := store.InsertIfAbsent(ctx, testPost(id))
		require.NoError(t, err)
	}

	posts, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestSummaryByLabel(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	labels := map[string]string{
		"A": "positive",
		"B": "negative",
		"C": "negative",
		"D": "neutral",
	}
	for id, label := range labels {
		p := testPost(id)
		p.SentimentLabel = label
		_, err := store.InsertIfAbsent(ctx, p)
		require.NoError(t, err)
	}

	counts, err := store.SummaryByLabel(ctx)
	require.NoError(t, err)

	got := map[string]int{}
	for _, lc := range counts {
		got[lc.Label] = lc.Count
	}

	assert.Equal(t, map[string]int{
		"positive": 1,
		"negative": 2,
		"neutral":  1,
	}, got)
}
