package embedcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "fake/model"
}

type memStore struct {
	mu    sync.Mutex
	items map[string][]float32
	saves int
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[(&model.EmbeddingCache{ModelName: modelName, TaskType: taskType, ContentHash: contentHash}).Key()]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.items[item.Key()] = item.Embedding
	return nil
}

func TestWrapLRU(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 16, time.Minute)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	v1[0] = 99
	v2, err := e.Embed(ctx, "hello", "query")
	require.NoError(t, err)
	require.Equal(t, float32(5), v2[0])
	require.Equal(t, 1, inner.calls)

	_, err = e.Embed(ctx, "hello", "document")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, "fake/model", e.ModelName())
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Same(t, inner, WrapLRU(inner, 0, time.Minute))
}

func TestWrapLRUErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	e := WrapLRU(inner, 16, time.Minute)
	_, err := e.Embed(context.Background(), "x", "")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "x", "")
	require.Error(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestWrapStore(t *testing.T) {
	inner := &countingEmbedder{}
	store := &memStore{items: map[string][]float32{}}
	ctx := context.Background()

	e := WrapStore(inner, store)
	_, err := e.Embed(ctx, "abc", "")
	require.NoError(t, err)
	// a fresh wrapper over the same store still hits
	e = WrapStore(&countingEmbedder{err: errors.New("should not be called")}, store)
	v, err := e.Embed(ctx, "abc", "")
	require.NoError(t, err)
	require.Equal(t, []float32{3, 1}, v)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, 1, store.saves)
}
