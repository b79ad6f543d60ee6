package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
)

type MemoryService struct {
	store memory.Store
	topK  int
}

// NewMemoryService wraps store, which may be nil when no memory is
// configured; every call then fails with ErrMemoryDisabled.
func NewMemoryService(store memory.Store, topK int) *MemoryService {
	if topK <= 0 {
		topK = memory.DefaultTopK
	}
	return &MemoryService{store: store, topK: topK}
}

func errMemoryDisabled() error {
	return appErr.ErrMemoryDisabled
}

func (s *MemoryService) Add(ctx context.Context, docs []memory.Document) ([]string, error) {
	if s.store == nil {
		return nil, errMemoryDisabled()
	}
	for i, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			return nil, fmt.Errorf("%w: document %d has empty content", appErr.ErrInvalid, i)
		}
	}
	ids, err := s.store.AddMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("memories added", zap.Int("count", len(ids)))
	return ids, nil
}

func (s *MemoryService) Search(ctx context.Context, query string, topK int) ([]model.MemoryChunk, error) {
	if s.store == nil {
		return nil, errMemoryDisabled()
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if topK <= 0 {
		topK = s.topK
	}
	return s.store.Search(ctx, query, topK)
}

func (s *MemoryService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return errMemoryDisabled()
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: memory %s", appErr.ErrNotFound, id)
	}
	return nil
}

func (s *MemoryService) Clear(ctx context.Context) error {
	if s.store == nil {
		return errMemoryDisabled()
	}
	return s.store.Clear(ctx)
}

func (s *MemoryService) Len(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, errMemoryDisabled()
	}
	return s.store.Len(ctx)
}
