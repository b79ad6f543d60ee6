package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	"github.com/google/uuid"
	kvector "github.com/kshard/vector"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
)

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"

	minEfSearch = 100
)

type semanticEntry struct {
	key      uint32
	id       string
	content  string
	metadata map[string]interface{}
	vec      []float32
}

// SemanticStore keeps embeddings in an in-process HNSW graph. The graph has
// no removal, so deleted keys stay in it and are filtered from results.
type SemanticStore struct {
	embedder ai.IEmbedder

	mu      sync.RWMutex
	index   *hnsw.HNSW[vector.VF32]
	nextKey uint32
	byKey   map[uint32]*semanticEntry
	byID    map[string]uint32
	dead    int
	// dim is fixed by the first insert and only reset by Clear, since
	// deleted vectors stay in the graph.
	dim int
}

func NewSemanticStore(embedder ai.IEmbedder) (*SemanticStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("semantic store requires an embedder")
	}
	s := &SemanticStore{embedder: embedder}
	s.reset()
	return s, nil
}

func (s *SemanticStore) reset() {
	s.index = hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine()))
	s.byKey = map[uint32]*semanticEntry{}
	s.byID = map[string]uint32{}
	s.dead = 0
	s.dim = 0
}

func (s *SemanticStore) Add(ctx context.Context, content string, metadata map[string]interface{}) (string, error) {
	vec, err := s.embedder.Embed(ctx, content, TaskTypeDocument)
	if err != nil {
		return "", fmt.Errorf("embed memory: %w", err)
	}
	if len(vec) == 0 {
		return "", fmt.Errorf("embed memory: empty vector")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim > 0 && s.dim != len(vec) {
		return "", fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dim, len(vec))
	}
	s.dim = len(vec)
	s.nextKey++
	entry := &semanticEntry{
		key:      s.nextKey,
		id:       uuid.NewString(),
		content:  content,
		metadata: copyMetadata(metadata),
		vec:      vec,
	}
	s.index.Insert(vector.VF32{Key: entry.key, Vec: vec})
	s.byKey[entry.key] = entry
	s.byID[entry.id] = entry.key
	return entry.id, nil
}

func (s *SemanticStore) AddMany(ctx context.Context, docs []Document) ([]string, error) {
	return addEach(ctx, s, docs)
}

// Search scores hits by cosine similarity between the query and the stored
// vector, so scores are comparable with the pg store.
func (s *SemanticStore) Search(ctx context.Context, query string, topK int) ([]model.MemoryChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	s.mu.RLock()
	empty := len(s.byKey) == 0
	s.mu.RUnlock()
	if empty {
		return []model.MemoryChunk{}, nil
	}
	q, err := s.embedder.Embed(ctx, query, TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dim != len(q) {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dim, len(q))
	}
	k := topK + s.dead
	ef := k * 2
	if ef < minEfSearch {
		ef = minEfSearch
	}
	type hit struct {
		entry *semanticEntry
		score float64
	}
	hits := make([]hit, 0, k)
	for _, res := range s.index.Search(vector.VF32{Vec: q}, k, ef) {
		entry, ok := s.byKey[res.Key]
		if !ok {
			continue
		}
		hits = append(hits, hit{entry: entry, score: cosine(q, entry.vec)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.key < hits[j].entry.key
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]model.MemoryChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, model.MemoryChunk{
			Content:  h.entry.content,
			Source:   sourceOf(h.entry.metadata),
			Score:    model.ScorePtr(h.score),
			Metadata: copyMetadata(h.entry.metadata),
		})
	}
	logutil.GetLogger(ctx).Debug("semantic search",
		zap.Int("candidates", len(s.byKey)), zap.Int("hits", len(out)))
	return out, nil
}

func (s *SemanticStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	delete(s.byKey, key)
	s.dead++
	return true, nil
}

func (s *SemanticStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *SemanticStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
