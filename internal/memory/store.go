package memory

import (
	"context"
	"fmt"

	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/textutil"
)

const (
	DefaultTopK = 5
	// SourceKey is the metadata key copied into MemoryChunk.Source.
	SourceKey = "source"
)

type Document struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type Store interface {
	Add(ctx context.Context, content string, metadata map[string]interface{}) (string, error)
	AddMany(ctx context.Context, docs []Document) ([]string, error)
	Search(ctx context.Context, query string, topK int) ([]model.MemoryChunk, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// addEach is the AddMany of stores without a batch path.
func addEach(ctx context.Context, s Store, docs []Document) ([]string, error) {
	ids := make([]string, 0, len(docs))
	for i, d := range docs {
		id, err := s.Add(ctx, d.Content, d.Metadata)
		if err != nil {
			return ids, fmt.Errorf("add document %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func sourceOf(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[SourceKey].(string); ok {
		return s
	}
	return ""
}

func copyMetadata(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// FormatForPrompt renders chunks as numbered "[i] content (Source: s)"
// lines for templates that do not iterate memories themselves.
func FormatForPrompt(chunks []model.MemoryChunk) string {
	contents := make([]string, 0, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		contents = append(contents, c.Content)
		sources = append(sources, c.Source)
	}
	return textutil.FormatMemories(contents, sources)
}
