package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/chnghia/atomic-inference-boilerplate/internal/graph"
	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
)

type AgentService struct {
	react  *graph.ReActAgent
	router *graph.RouterAgent
}

// NewAgentService builds both example agents from the catalog. store backs
// the search tool and the search specialist and may be nil.
func NewAgentService(catalog *Catalog, store memory.Store, maxSteps, topK int) (*AgentService, error) {
	react, err := graph.NewReActAgent(catalog.Reasoning(),
		graph.WithMaxSteps(maxSteps),
		graph.WithTool(graph.NewSearchTool(store, topK)),
	)
	if err != nil {
		return nil, fmt.Errorf("build react agent: %w", err)
	}
	router, err := graph.NewRouterAgent(catalog.RouterUnits(), store, topK)
	if err != nil {
		return nil, fmt.Errorf("build router agent: %w", err)
	}
	return &AgentService{react: react, router: router}, nil
}

func (s *AgentService) React(ctx context.Context, question string) (*graph.ReActState, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	return s.react.Run(ctx, question)
}

func (s *AgentService) Route(ctx context.Context, query string) (*graph.RouterState, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	return s.router.Run(ctx, query)
}
