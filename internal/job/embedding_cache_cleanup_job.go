// Package job holds maintenance jobs run by the scheduler.
package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	EmbeddingCacheCleanupName = "embedding_cache_cleanup"
	defaultCacheKeepDays      = 30
)

type cacheEvicter interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// EmbeddingCacheCleanupJob drops persisted embeddings older than keepDays.
type EmbeddingCacheCleanupJob struct {
	repo     cacheEvicter
	keepDays int
	now      func() time.Time
}

func NewEmbeddingCacheCleanupJob(repo cacheEvicter, keepDays int) *EmbeddingCacheCleanupJob {
	if keepDays <= 0 {
		keepDays = defaultCacheKeepDays
	}
	return &EmbeddingCacheCleanupJob{repo: repo, keepDays: keepDays, now: time.Now}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return EmbeddingCacheCleanupName
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	cutoff := j.now().Add(-time.Duration(j.keepDays) * 24 * time.Hour).Unix()
	deleted, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("embedding cache cleaned",
		zap.Int64("deleted", deleted),
		zap.Int("keep_days", j.keepDays),
	)
	return nil
}
