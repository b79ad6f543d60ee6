package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
)

type RunInput struct {
	Vars       map[string]interface{} `json:"vars"`
	SystemVars map[string]interface{} `json:"system_vars"`
	// MemoryQuery, when set, retrieves MemoryTopK chunks and injects them
	// into both prompts.
	MemoryQuery string `json:"memory_query"`
	MemoryTopK  int    `json:"memory_top_k"`
}

type PreviewResult struct {
	Unit     string              `json:"unit"`
	Prompt   string              `json:"prompt"`
	Memories []model.MemoryChunk `json:"memories,omitempty"`
}

type InferenceService struct {
	catalog *Catalog
	store   memory.Store
	topK    int
}

// NewInferenceService serves the catalog. store may be nil, in which case a
// memory query is rejected.
func NewInferenceService(catalog *Catalog, store memory.Store, topK int) *InferenceService {
	if topK <= 0 {
		topK = memory.DefaultTopK
	}
	return &InferenceService{catalog: catalog, store: store, topK: topK}
}

func (s *InferenceService) List() []UnitInfo {
	return s.catalog.List()
}

func (s *InferenceService) Run(ctx context.Context, name string, in *RunInput) (*RunResult, error) {
	u, err := s.catalog.get(name)
	if err != nil {
		return nil, err
	}
	if in == nil {
		in = &RunInput{}
	}
	memories, err := s.recall(ctx, in)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := u.Run(ctx, in.Vars, memories, withToday(in.SystemVars))
	if err != nil {
		logutil.GetLogger(ctx).Error("run unit failed", zap.String("unit", name), zap.Error(err))
		return nil, err
	}
	logutil.GetLogger(ctx).Info("run unit",
		zap.String("unit", name),
		zap.Int("memories", len(memories)),
		zap.Int("attempts", res.Attempts),
		zap.Duration("cost", time.Since(start)),
	)
	return res, nil
}

func (s *InferenceService) Preview(ctx context.Context, name string, in *RunInput) (*PreviewResult, error) {
	u, err := s.catalog.get(name)
	if err != nil {
		return nil, err
	}
	if in == nil {
		in = &RunInput{}
	}
	memories, err := s.recall(ctx, in)
	if err != nil {
		return nil, err
	}
	prompt, err := u.Preview(in.Vars, memories)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Unit: name, Prompt: prompt, Memories: memories}, nil
}

func (s *InferenceService) recall(ctx context.Context, in *RunInput) ([]model.MemoryChunk, error) {
	if in.MemoryQuery == "" {
		return nil, nil
	}
	if s.store == nil {
		return nil, errMemoryDisabled()
	}
	topK := in.MemoryTopK
	if topK <= 0 {
		topK = s.topK
	}
	return s.store.Search(ctx, in.MemoryQuery, topK)
}

// withToday fills the system template's date unless the caller set one.
func withToday(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	if _, ok := out["today"]; !ok {
		out["today"] = time.Now().Format(time.RFC3339)
	}
	return out
}
