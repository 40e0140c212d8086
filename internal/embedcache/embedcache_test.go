package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.EmbeddingResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &ai.EmbeddingResult{Vector: []float32{float32(len(text)), 1}, Model: "m"}, nil
}

func (c *countingEmbedder) ModelName() string { return "m" }

type memStore struct {
	items   map[string]*model.EmbeddingCache
	getErr  error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{items: map[string]*model.EmbeddingCache{}}
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) (*model.EmbeddingCache, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.items[modelName+"|"+taskType+"|"+contentHash]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+"|"+item.TaskType+"|"+item.ContentHash] = item
	return nil
}

// dimEmbedder returns a vector of fixed dimension, or err while it is set.
type dimEmbedder struct {
	dim   int
	err   error
	calls int
}

func (d *dimEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.EmbeddingResult, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return &ai.EmbeddingResult{Vector: make([]float32, d.dim)}, nil
}

func (d *dimEmbedder) ModelName() string { return "dim" }

func newFallbackGroup() (*dimEmbedder, *dimEmbedder, ai.IEmbedder) {
	primary := &dimEmbedder{dim: 1536, err: errors.New("primary down")}
	fallback := &dimEmbedder{dim: 768}
	group := ai.NewGroupEmbedder([]ai.EmbedderEntry{
		{Name: "openai/large", Embedder: primary},
		{Name: "gemini/small", Embedder: fallback},
	})
	return primary, fallback, group
}

func TestLRUEmbedderCachesByText(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)
	ctx := context.Background()

	first, err := e.Embed(ctx, "abc", "query")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "abc", "query")
	require.NoError(t, err)
	require.Equal(t, first.Vector, second.Vector)
	require.Equal(t, 1, next.calls)

	second.Vector[0] = 99
	third, err := e.Embed(ctx, "abc", "query")
	require.NoError(t, err)
	require.Equal(t, float32(3), third.Vector[0])

	_, err = e.Embed(ctx, "abc", "document")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestLRUEmbedderDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
}

func TestDBEmbedderReadsThrough(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	e := WrapDBCacheToEmbedder(next, store)
	ctx := context.Background()

	_, err := e.Embed(ctx, "hello", "")
	require.NoError(t, err)
	res, err := e.Embed(ctx, "hello", "")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, res.Vector)
	require.Equal(t, 1, next.calls)
	require.Equal(t, 1, store.saves)
}

func TestDBEmbedderStoreFailuresFallBack(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	store.getErr = errors.New("db down")
	store.saveErr = errors.New("db down")
	e := WrapDBCacheToEmbedder(next, store)

	res, err := e.Embed(context.Background(), "hello", "")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, res.Vector)
	require.Equal(t, 1, next.calls)
}

func TestDBEmbedderPropagatesEmbedError(t *testing.T) {
	next := &countingEmbedder{err: errors.New("boom")}
	e := WrapDBCacheToEmbedder(next, newMemStore())
	_, err := e.Embed(context.Background(), "hello", "")
	require.Error(t, err)
}

func TestLRUEmbedderDoesNotPinFallbackVectors(t *testing.T) {
	primary, fallback, group := newFallbackGroup()
	e := WrapLruCacheToEmbedder(group, 8, time.Minute)
	ctx := context.Background()

	res, err := e.Embed(ctx, "what is this book about?", "query")
	require.NoError(t, err)
	require.Len(t, res.Vector, 768)
	require.Equal(t, "gemini/small", res.Model)
	require.True(t, res.Fallback)

	primary.err = nil
	res, err = e.Embed(ctx, "what is this book about?", "query")
	require.NoError(t, err)
	require.Len(t, res.Vector, 1536)
	require.Equal(t, "openai/large", res.Model)
	require.False(t, res.Fallback)

	res, err = e.Embed(ctx, "what is this book about?", "query")
	require.NoError(t, err)
	require.Len(t, res.Vector, 1536)
	require.Equal(t, "openai/large", res.Model)
	require.Equal(t, 2, primary.calls)
	require.Equal(t, 1, fallback.calls)
}

func TestDBEmbedderDoesNotPersistFallbackVectors(t *testing.T) {
	primary, _, group := newFallbackGroup()
	store := newMemStore()
	e := WrapDBCacheToEmbedder(group, store)
	ctx := context.Background()

	res, err := e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	require.Len(t, res.Vector, 768)
	require.Equal(t, 0, store.saves)

	primary.err = nil
	res, err = e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	require.Len(t, res.Vector, 1536)
	require.Equal(t, 1, store.saves)
	for _, item := range store.items {
		require.Equal(t, "openai/large", item.ServedBy)
		require.Equal(t, 1536, item.Dim)
	}

	res, err = e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	require.Len(t, res.Vector, 1536)
	require.Equal(t, "openai/large", res.Model)
	require.Equal(t, 2, primary.calls)
}

func TestDBEmbedderIgnoresInconsistentRows(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemStore()
	e := WrapDBCacheToEmbedder(next, store)
	ctx := context.Background()

	_, err := e.Embed(ctx, "hello", "")
	require.NoError(t, err)
	for _, item := range store.items {
		item.Dim = 768
	}
	res, err := e.Embed(ctx, "hello", "")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, res.Vector)
	require.Equal(t, 2, next.calls)
}
