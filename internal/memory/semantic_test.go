package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/textutil"
)

// bagEmbedder gives every distinct word its own dimension.
type bagEmbedder struct {
	mu    sync.Mutex
	dim   int
	vocab map[string]int
	calls []string
	err   error
}

func newBagEmbedder(dim int) *bagEmbedder {
	return &bagEmbedder{dim: dim, vocab: map[string]int{}}
}

func (b *bagEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, taskType)
	if b.err != nil {
		return nil, b.err
	}
	vec := make([]float32, b.dim)
	for _, w := range textutil.Words(text) {
		idx, ok := b.vocab[w]
		if !ok {
			idx = len(b.vocab) % b.dim
			b.vocab[w] = idx
		}
		vec[idx]++
	}
	return vec, nil
}

func (b *bagEmbedder) ModelName() string { return "bag/words" }

func TestSemanticStoreSearch(t *testing.T) {
	ctx := context.Background()
	emb := newBagEmbedder(32)
	s, err := NewSemanticStore(emb)
	require.NoError(t, err)

	res, err := s.Search(ctx, "anything", 3)
	require.NoError(t, err)
	require.Empty(t, res)

	ids, err := s.AddMany(ctx, []Document{
		{Content: "cats purr softly", Metadata: map[string]interface{}{"source": "cats.md"}},
		{Content: "dogs bark loudly"},
		{Content: "the stock market fell"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	res, err = s.Search(ctx, "cats purr", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "cats purr softly", res[0].Content)
	require.Equal(t, "cats.md", res[0].Source)
	require.Greater(t, *res[0].Score, *res[1].Score)
	require.Equal(t, []string{TaskTypeDocument, TaskTypeDocument, TaskTypeDocument, TaskTypeQuery}, emb.calls)

	ok, err := s.Delete(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	res, err = s.Search(ctx, "cats purr", 3)
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		require.NotEqual(t, "cats purr softly", r.Content)
	}

	n, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx))
	n, err = s.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSemanticStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	emb := newBagEmbedder(8)
	s, err := NewSemanticStore(emb)
	require.NoError(t, err)
	_, err = s.Add(ctx, "one two", nil)
	require.NoError(t, err)

	emb.dim = 4
	_, err = s.Add(ctx, "three", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimension mismatch")
}

func TestSemanticStoreDimensionSurvivesDelete(t *testing.T) {
	ctx := context.Background()
	emb := newBagEmbedder(3)
	s, err := NewSemanticStore(emb)
	require.NoError(t, err)
	id, err := s.Add(ctx, "alpha beta", nil)
	require.NoError(t, err)
	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	// the deleted vector is still in the graph, a new size must be refused
	emb.dim = 5
	require.NotPanics(t, func() {
		_, err = s.Add(ctx, "gamma", nil)
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimension mismatch")

	// Clear drops the graph and accepts the new size
	require.NoError(t, s.Clear(ctx))
	_, err = s.Add(ctx, "gamma", nil)
	require.NoError(t, err)
	res, err := s.Search(ctx, "gamma", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestSemanticStoreEmbedError(t *testing.T) {
	ctx := context.Background()
	emb := newBagEmbedder(8)
	emb.err = errors.New("quota")
	s, err := NewSemanticStore(emb)
	require.NoError(t, err)
	_, err = s.Add(ctx, "one", nil)
	require.ErrorIs(t, err, emb.err)

	_, err = NewSemanticStore(nil)
	require.Error(t, err)
}

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	require.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
