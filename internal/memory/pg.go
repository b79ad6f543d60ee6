package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	"github.com/chnghia/atomic-inference-boilerplate/internal/repo"
)

const DefaultCollection = "default"

// PGStore persists memories in a pgvector table, one collection per store.
type PGStore struct {
	repo       *repo.MemoryRepo
	embedder   ai.IEmbedder
	collection string
}

func NewPGStore(r *repo.MemoryRepo, embedder ai.IEmbedder, collection string) (*PGStore, error) {
	if r == nil || embedder == nil {
		return nil, fmt.Errorf("pg store requires a repo and an embedder")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &PGStore{repo: r, embedder: embedder, collection: collection}, nil
}

func (s *PGStore) Collection() string {
	return s.collection
}

func (s *PGStore) Add(ctx context.Context, content string, metadata map[string]interface{}) (string, error) {
	ids, err := s.AddMany(ctx, []Document{{Content: content, Metadata: metadata}})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddMany embeds every document first and writes them in one insert.
func (s *PGStore) AddMany(ctx context.Context, docs []Document) ([]string, error) {
	now := time.Now().UnixMilli()
	records := make([]*model.MemoryRecord, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for i, d := range docs {
		vec, err := s.embedder.Embed(ctx, d.Content, TaskTypeDocument)
		if err != nil {
			return nil, fmt.Errorf("embed document %d: %w", i, err)
		}
		rec := &model.MemoryRecord{
			ID:         uuid.NewString(),
			Collection: s.collection,
			Content:    d.Content,
			Source:     sourceOf(d.Metadata),
			Metadata:   copyMetadata(d.Metadata),
			Embedding:  vec,
			Ctime:      now,
		}
		records = append(records, rec)
		ids = append(ids, rec.ID)
	}
	if err := s.repo.SaveBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("save memories: %w", err)
	}
	return ids, nil
}

// Search converts cosine distance back into similarity.
func (s *PGStore) Search(ctx context.Context, query string, topK int) ([]model.MemoryChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	q, err := s.embedder.Embed(ctx, query, TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	rows, err := s.repo.Search(ctx, s.collection, q, topK)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	out := make([]model.MemoryChunk, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.MemoryChunk{
			Content:  row.Content,
			Source:   row.Source,
			Score:    model.ScorePtr(1 - row.Distance),
			Metadata: row.Metadata,
		})
	}
	return out, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, s.collection, id)
}

func (s *PGStore) Clear(ctx context.Context) error {
	_, err := s.repo.DeleteCollection(ctx, s.collection)
	return err
}

func (s *PGStore) Len(ctx context.Context) (int, error) {
	return s.repo.Count(ctx, s.collection)
}
