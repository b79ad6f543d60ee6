package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/textutil"
)

type naiveEntry struct {
	id       string
	seq      int
	content  string
	words    map[string]int
	metadata map[string]interface{}
}

// NaiveStore scores documents by counting query words in them. It is a
// stand-in for tests and demos, not a retrieval index.
type NaiveStore struct {
	mu      sync.RWMutex
	counter int
	entries map[string]*naiveEntry
}

func NewNaiveStore() *NaiveStore {
	return &NaiveStore{entries: map[string]*naiveEntry{}}
}

func (s *NaiveStore) Add(ctx context.Context, content string, metadata map[string]interface{}) (string, error) {
	words := map[string]int{}
	for _, w := range textutil.Words(content) {
		words[w]++
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	id := fmt.Sprintf("doc_%d", s.counter)
	s.entries[id] = &naiveEntry{
		id:       id,
		seq:      s.counter,
		content:  content,
		words:    words,
		metadata: copyMetadata(metadata),
	}
	return id, nil
}

func (s *NaiveStore) AddMany(ctx context.Context, docs []Document) ([]string, error) {
	return addEach(ctx, s, docs)
}

// Search scores each document as the summed whole-word occurrences of the
// query tokens divided by the number of query tokens.
func (s *NaiveStore) Search(ctx context.Context, query string, topK int) ([]model.MemoryChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return []model.MemoryChunk{}, nil
	}
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		// punctuation around a query word is not part of it
		if w := textutil.Words(tok); len(w) > 0 {
			terms = append(terms, w...)
		}
	}

	type hit struct {
		entry *naiveEntry
		score float64
	}
	s.mu.RLock()
	hits := make([]hit, 0, len(s.entries))
	for _, e := range s.entries {
		count := 0
		for _, term := range terms {
			count += e.words[term]
		}
		if count == 0 {
			continue
		}
		hits = append(hits, hit{entry: e, score: float64(count) / float64(len(tokens))})
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.seq < hits[j].entry.seq
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
	return out, nil
}

func (s *NaiveStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

// Clear drops every document and restarts ids at doc_1.
func (s *NaiveStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]*naiveEntry{}
	s.counter = 0
	return nil
}

func (s *NaiveStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
