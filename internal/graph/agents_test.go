package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/model"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
)

// scripted replays outputs in order and records the vars of each call.
type scripted[T any] struct {
	outputs []*T
	err     error
	vars    []map[string]interface{}
}

func (s *scripted[T]) Run(ctx context.Context, vars map[string]interface{}, memories []model.MemoryChunk, systemVars map[string]interface{}) (*T, error) {
	s.vars = append(s.vars, vars)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.vars) > len(s.outputs) {
		return nil, errors.New("unexpected call")
	}
	return s.outputs[len(s.vars)-1], nil
}

func TestReActAgentToolsThenRespond(t *testing.T) {
	ctx := context.Background()
	store := memory.NewNaiveStore()
	_, err := store.Add(ctx, "Python is a programming language", nil)
	require.NoError(t, err)

	thinker := &scripted[schema.ReasoningStep]{outputs: []*schema.ReasoningStep{
		{Thought: "look it up", Action: schema.ActionSearch, ActionInput: "python"},
		{Thought: "compute", Action: schema.ActionCalculate, ActionInput: "2 + 2 * 10"},
		{Thought: "done", Action: schema.ActionRespond, ActionInput: "Python is a language; 22"},
	}}
	agent, err := NewReActAgent(thinker, WithTool(NewSearchTool(store, 3)))
	require.NoError(t, err)

	state, err := agent.Run(ctx, "What is Python and 2 + 2 * 10?")
	require.NoError(t, err)
	require.Equal(t, 3, state.Steps)
	require.Len(t, state.Observations, 2)
	require.Equal(t, "Result: 22", state.Observations[1].Result)
	require.Equal(t, "Python is a language; 22", state.Final.Answer)
	require.Equal(t, []string{schema.ActionSearch, schema.ActionCalculate}, state.Final.Sources)
	require.InDelta(t, 0.85, state.Final.Confidence, 1e-9)

	// the third think call sees both observations
	obs := thinker.vars[2]["observations"].([]map[string]interface{})
	require.Len(t, obs, 2)
	require.Equal(t, "calculate", obs[1]["action"])
}

func TestReActAgentStopsAfterMaxSteps(t *testing.T) {
	steps := make([]*schema.ReasoningStep, 0, 10)
	for i := 0; i < 10; i++ {
		steps = append(steps, &schema.ReasoningStep{Thought: "again", Action: schema.ActionCalculate, ActionInput: "1 + 1"})
	}
	thinker := &scripted[schema.ReasoningStep]{outputs: steps}
	agent, err := NewReActAgent(thinker)
	require.NoError(t, err)

	state, err := agent.Run(context.Background(), "loop")
	require.NoError(t, err)
	require.Equal(t, DefaultMaxSteps, state.Steps)
	require.Len(t, thinker.vars, DefaultMaxSteps)
	require.Len(t, state.Observations, DefaultMaxSteps-1)
	require.Equal(t, "Result: 2", state.Final.Answer)
	require.InDelta(t, 0.5, state.Final.Confidence, 1e-9)
}

func TestReActAgentUnknownAction(t *testing.T) {
	thinker := &scripted[schema.ReasoningStep]{outputs: []*schema.ReasoningStep{
		{Thought: "search", Action: schema.ActionSearch, ActionInput: "x"},
		{Thought: "ok", Action: schema.ActionRespond, ActionInput: "fine"},
	}}
	agent, err := NewReActAgent(thinker)
	require.NoError(t, err)
	state, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, "Unknown action: search", state.Observations[0].Result)
}

func TestReActAgentUnitError(t *testing.T) {
	boom := errors.New("boom")
	agent, err := NewReActAgent(&scripted[schema.ReasoningStep]{err: boom})
	require.NoError(t, err)
	_, err = agent.Run(context.Background(), "q")
	require.ErrorIs(t, err, boom)

	_, err = NewReActAgent(nil)
	require.Error(t, err)
}

func routerUnits(agent string) (RouterUnits, *scripted[schema.SearchAgentOutput]) {
	search := &scripted[schema.SearchAgentOutput]{outputs: []*schema.SearchAgentOutput{
		{QueryUnderstanding: "capital", Results: []string{"Paris"}, Summary: "Paris is the capital of France."},
	}}
	return RouterUnits{
		Routing: &scripted[schema.RoutingDecision]{outputs: []*schema.RoutingDecision{
			{Intent: "intent", SelectedAgent: agent, Confidence: 0.9},
		}},
		Search: search,
		Analyze: &scripted[schema.AnalyzeAgentOutput]{outputs: []*schema.AnalyzeAgentOutput{
			{AnalysisType: "comparison", KeyFindings: []string{"a"}, Conclusion: "Both are fine."},
		}},
		Chat: &scripted[schema.ChatAgentOutput]{outputs: []*schema.ChatAgentOutput{
			{Response: "Hi there!", Tone: "friendly"},
		}},
	}, search
}

func TestRouterAgent(t *testing.T) {
	tests := []struct {
		agent string
		text  string
	}{
		{schema.AgentSearch, "Paris is the capital of France."},
		{schema.AgentAnalyze, "Both are fine."},
		{schema.AgentChat, "Hi there!"},
	}
	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			units, _ := routerUnits(tt.agent)
			agent, err := NewRouterAgent(units, nil, 3)
			require.NoError(t, err)
			state, err := agent.Run(context.Background(), "query")
			require.NoError(t, err)
			require.Equal(t, tt.agent, state.Response.AgentName)
			require.True(t, state.Response.Success)
			require.Equal(t, tt.text, state.Response.ResponseText)
		})
	}
}

func TestRouterAgentSearchUsesStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewNaiveStore()
	_, err := store.Add(ctx, "France has Paris as its capital", nil)
	require.NoError(t, err)

	units, search := routerUnits(schema.AgentSearch)
	agent, err := NewRouterAgent(units, store, 3)
	require.NoError(t, err)
	_, err = agent.Run(ctx, "capital of France")
	require.NoError(t, err)
	require.Equal(t, []string{"France has Paris as its capital"}, search.vars[0]["search_results"])
}

func TestRouterAgentRequiresUnits(t *testing.T) {
	_, err := NewRouterAgent(RouterUnits{}, nil, 3)
	require.Error(t, err)
}
