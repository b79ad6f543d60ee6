package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEvicter struct {
	cutoff int64
	err    error
}

func (f *fakeEvicter) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestEmbeddingCacheCleanupJob_Cutoff(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	ev := &fakeEvicter{}
	j := NewEmbeddingCacheCleanupJob(ev, 7)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.AddDate(0, 0, -7).Unix(), ev.cutoff)
	require.Equal(t, EmbeddingCacheCleanupName, j.Name())
}

func TestEmbeddingCacheCleanupJob_DefaultsAndErrors(t *testing.T) {
	j := NewEmbeddingCacheCleanupJob(nil, 0)
	require.Equal(t, defaultCacheKeepDays, j.keepDays)
	require.NoError(t, j.Run(context.Background()))

	ev := &fakeEvicter{err: errors.New("db down")}
	require.Error(t, NewEmbeddingCacheCleanupJob(ev, 1).Run(context.Background()))
}
