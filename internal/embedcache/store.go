package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
)

// Store persists embeddings across processes; repo.EmbeddingCacheRepo is
// the postgres implementation.
type Store interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapStore(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &storeEmbedder{next: e, store: store}
}

type storeEmbedder struct {
	next  ai.IEmbedder
	store Store
}

func (d *storeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_, contentHash, modelName := cacheKey(d.next.ModelName(), taskType, text)
	values, ok, err := d.store.Get(ctx, modelName, taskType, contentHash)
	if err != nil {
		return nil, err
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (store)", zap.String("task_type", taskType))
		return values, nil
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.store.Save(ctx, model.NewEmbeddingCache(modelName, taskType, contentHash, res, time.Now())); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (d *storeEmbedder) ModelName() string {
	return d.next.ModelName()
}
