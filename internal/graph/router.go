package graph

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
	"github.com/chnghia/atomic-inference-boilerplate/internal/unit"
)

const (
	nodeRouter = "router"

	analyzeContext = "User is asking for analysis or comparison."
)

type RouterState struct {
	Query    string                  `json:"query"`
	Decision *schema.RoutingDecision `json:"routing_decision,omitempty"`
	Response *schema.AgentResponse   `json:"agent_response,omitempty"`
}

type RouterUnits struct {
	Routing unit.Runner[schema.RoutingDecision]
	Search  unit.Runner[schema.SearchAgentOutput]
	Analyze unit.Runner[schema.AnalyzeAgentOutput]
	Chat    unit.Runner[schema.ChatAgentOutput]
}

// RouterAgent classifies a query and hands it to one specialist unit.
type RouterAgent struct {
	units RouterUnits
	store memory.Store
	topK  int
	graph *Graph[RouterState]
}

// NewRouterAgent wires the specialists. store feeds the search agent and
// may be nil.
func NewRouterAgent(units RouterUnits, store memory.Store, topK int) (*RouterAgent, error) {
	if units.Routing == nil || units.Search == nil || units.Analyze == nil || units.Chat == nil {
		return nil, fmt.Errorf("router agent requires routing, search, analyze and chat units")
	}
	if topK <= 0 {
		topK = 3
	}
	a := &RouterAgent{units: units, store: store, topK: topK}
	g := New[RouterState]("router").
		AddNode(nodeRouter, a.route).
		AddNode(schema.AgentSearch, a.search).
		AddNode(schema.AgentAnalyze, a.analyze).
		AddNode(schema.AgentChat, a.chat).
		SetEntry(nodeRouter).
		AddConditionalEdges(nodeRouter, func(s *RouterState) string {
			return s.Decision.SelectedAgent
		}, map[string]string{
			schema.AgentSearch:  schema.AgentSearch,
			schema.AgentAnalyze: schema.AgentAnalyze,
			schema.AgentChat:    schema.AgentChat,
		}).
		AddEdge(schema.AgentSearch, End).
		AddEdge(schema.AgentAnalyze, End).
		AddEdge(schema.AgentChat, End)
	if err := g.Compile(); err != nil {
		return nil, err
	}
	a.graph = g
	return a, nil
}

func (a *RouterAgent) Run(ctx context.Context, query string) (*RouterState, error) {
	state := &RouterState{Query: query}
	if _, err := a.graph.Run(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}

func (a *RouterAgent) route(ctx context.Context, s *RouterState) error {
	d, err := a.units.Routing.Run(ctx, map[string]interface{}{"query": s.Query}, nil, nil)
	if err != nil {
		return err
	}
	s.Decision = d
	logutil.GetLogger(ctx).Debug("router decision",
		zap.String("intent", d.Intent), zap.String("agent", d.SelectedAgent), zap.Float64("confidence", d.Confidence))
	return nil
}

func (a *RouterAgent) search(ctx context.Context, s *RouterState) error {
	results := []string{}
	if a.store != nil {
		chunks, err := a.store.Search(ctx, s.Query, a.topK)
		if err != nil {
			return fmt.Errorf("search memories: %w", err)
		}
		for _, c := range chunks {
			results = append(results, c.Content)
		}
	}
	out, err := a.units.Search.Run(ctx, map[string]interface{}{
		"query":          s.Query,
		"search_results": results,
	}, nil, nil)
	if err != nil {
		return err
	}
	s.Response = &schema.AgentResponse{
		AgentName:    schema.AgentSearch,
		Success:      true,
		ResponseText: out.Summary,
		Metadata: map[string]interface{}{
			"results": out.Results,
			"sources": out.Sources,
		},
	}
	return nil
}

func (a *RouterAgent) analyze(ctx context.Context, s *RouterState) error {
	out, err := a.units.Analyze.Run(ctx, map[string]interface{}{
		"query":   s.Query,
		"context": analyzeContext,
	}, nil, nil)
	if err != nil {
		return err
	}
	s.Response = &schema.AgentResponse{
		AgentName:    schema.AgentAnalyze,
		Success:      true,
		ResponseText: out.Conclusion,
		Metadata: map[string]interface{}{
			"analysis_type":   out.AnalysisType,
			"key_findings":    out.KeyFindings,
			"recommendations": out.Recommendations,
		},
	}
	return nil
}

func (a *RouterAgent) chat(ctx context.Context, s *RouterState) error {
	out, err := a.units.Chat.Run(ctx, map[string]interface{}{"message": s.Query}, nil, nil)
	if err != nil {
		return err
	}
	s.Response = &schema.AgentResponse{
		AgentName:    schema.AgentChat,
		Success:      true,
		ResponseText: out.Response,
		Metadata: map[string]interface{}{
			"tone":                out.Tone,
			"follow_up_questions": out.FollowUpQuestions,
		},
	}
	return nil
}
