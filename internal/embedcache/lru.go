package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
)

type lruEntry struct {
	vector   []float32
	servedBy string
}

func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, lruEntry](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, lruEntry]
}

// Embed serves repeated texts from memory. Fallback results are returned but
// never cached, so a recovered primary is consulted again on the next call.
func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.EmbeddingResult, error) {
	cacheKey, _, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("task_type", taskType))
		return &ai.EmbeddingResult{Vector: cloneVector(cached.vector), Model: cached.servedBy}, nil
	}
	res, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if res.Fallback {
		logutil.GetLogger(ctx).Debug("skip caching fallback embedding", zap.String("served_by", res.Model))
		return res, nil
	}
	l.cache.Add(cacheKey, lruEntry{vector: cloneVector(res.Vector), servedBy: servedBy(res, l.next)})
	return res, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}
