package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askbook/internal/ai"
	"github.com/xxxsen/askbook/internal/model"
)

// Store is the persistence used by the db cache, implemented by
// repo.EmbeddingCacheRepo.
type Store interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) (*model.EmbeddingCache, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapDBCacheToEmbedder(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store Store
}

// Embed reads through the store. A failed lookup or save is logged and the
// call falls back to the wrapped embedder. Rows whose dimension does not
// match their vector are ignored, and fallback results are not persisted.
func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) (*ai.EmbeddingResult, error) {
	_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, text)
	item, ok, err := d.store.Get(ctx, modelName, taskType, contentHash)
	switch {
	case err != nil:
		logutil.GetLogger(ctx).Warn("embedding cache lookup failed", zap.Error(err))
	case ok && !item.Consistent():
		logutil.GetLogger(ctx).Warn("embedding cache row inconsistent, ignored",
			zap.Int("dim", item.Dim), zap.Int("len", len(item.Embedding)))
	case ok:
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType))
		return &ai.EmbeddingResult{Vector: item.Embedding, Model: item.ServedBy}, nil
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if res.Fallback {
		logutil.GetLogger(ctx).Debug("skip persisting fallback embedding", zap.String("served_by", res.Model))
		return res, nil
	}
	if err := d.store.Save(ctx, &model.EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		ServedBy:    servedBy(res, d.next),
		Dim:         len(res.Vector),
		Embedding:   res.Vector,
		Ctime:       time.Now().Unix(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
