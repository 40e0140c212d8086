package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askbook/internal/model"
	"github.com/xxxsen/askbook/internal/repo"
	"github.com/xxxsen/askbook/internal/testutil"
)

func TestCorpusRepoReplaceAll(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	corpus := repo.NewCorpusRepo(db)
	ctx := context.Background()

	items := []model.CorpusSection{
		{Position: 0, Title: "Intro", Tokens: 10, Content: "hello", Embedding: []float32{1, 0}},
		{Position: 1, Title: "Pricing", Tokens: 20, Content: "money", Embedding: []float32{0, 1}},
	}
	require.NoError(t, corpus.ReplaceAll(ctx, items))
	require.NoError(t, corpus.ReplaceAll(ctx, items))

	n, err := corpus.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := corpus.ListOrdered(ctx)
	require.NoError(t, err)
	require.Equal(t, items, list)
}

func TestEmbeddingCacheRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	cache := repo.NewEmbeddingCacheRepo(db)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "a|b", "query", "h1")
	require.NoError(t, err)
	require.False(t, ok)

	old := time.Now().Add(-48 * time.Hour).Unix()
	require.NoError(t, cache.Save(ctx, &model.EmbeddingCache{ModelName: "a|b", TaskType: "query", ContentHash: "h1", ServedBy: "a", Embedding: []float32{0.5, 0.25}, Ctime: old}))
	item, ok, err := cache.Get(ctx, "a|b", "query", "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.5, 0.25}, item.Embedding)
	require.Equal(t, "a", item.ServedBy)
	require.Equal(t, 2, item.Dim)
	require.True(t, item.Consistent())

	removed, err := cache.DeleteBefore(ctx, time.Now().Add(-24*time.Hour).Unix())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}
