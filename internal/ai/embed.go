package ai

import (
	"context"
	"fmt"
	"strings"
)

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type modelEmbedder struct {
	provider IEmbedProvider
	model    string
}

func (e *modelEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *modelEmbedder) ModelName() string {
	return e.provider.Name() + "/" + e.model
}

// NewEmbedder resolves a "[provider/]model" identifier against the embed
// registry. Identifiers without a known prefix use the default provider.
func NewEmbedder(settings Settings, modelID string) (IEmbedder, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	name, model := settings.DefaultProvider, modelID
	if idx := strings.Index(modelID, "/"); idx > 0 && isEmbedRegistered(modelID[:idx]) {
		name, model = modelID[:idx], modelID[idx+1:]
	}
	provider, err := NewEmbedProvider(name, settings.argsFor(name))
	if err != nil {
		return nil, err
	}
	return &modelEmbedder{provider: provider, model: model}, nil
}

// NewEmbedders builds one embedder per identifier and chains them with a
// group embedder when more than one is given.
func NewEmbedders(settings Settings, modelIDs []string) (IEmbedder, error) {
	entries := make([]EmbedderEntry, 0, len(modelIDs))
	for _, id := range modelIDs {
		if strings.TrimSpace(id) == "" {
			continue
		}
		e, err := NewEmbedder(settings, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, EmbedderEntry{Name: e.ModelName(), Embedder: e})
	}
	switch len(entries) {
	case 0:
		return nil, fmt.Errorf("embedding model is required")
	case 1:
		return entries[0].Embedder, nil
	}
	return NewGroupEmbedder(entries), nil
}

func isEmbedRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := embedRegistry[normalizeName(name)]
	return ok
}
