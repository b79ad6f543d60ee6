package graph

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
	"github.com/chnghia/atomic-inference-boilerplate/internal/unit"
)

const (
	DefaultMaxSteps = 5

	nodeThink   = "think"
	nodeAct     = "act"
	nodeRespond = "respond"

	routeContinue = "continue"
	routeRespond  = "respond"

	respondConfidence = 0.85
	// used when the loop stops on the step budget instead of a respond action
	exhaustedConfidence = 0.5
)

type Observation struct {
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Result      string `json:"result"`
}

type ReActState struct {
	Question     string                `json:"question"`
	Observations []Observation         `json:"observations"`
	Current      *schema.ReasoningStep `json:"current_step,omitempty"`
	Final        *schema.FinalResponse `json:"final_answer,omitempty"`
	Steps        int                   `json:"step_count"`
}

type ReActAgent struct {
	thinker  unit.Runner[schema.ReasoningStep]
	tools    map[string]Tool
	maxSteps int
	graph    *Graph[ReActState]
}

type ReActOption func(a *ReActAgent)

func WithMaxSteps(n int) ReActOption {
	return func(a *ReActAgent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

func WithTool(t Tool) ReActOption {
	return func(a *ReActAgent) {
		a.tools[t.Name()] = t
	}
}

// NewReActAgent builds the think -> act -> think loop. Calculator is
// always available; search needs WithTool(NewSearchTool(...)).
func NewReActAgent(thinker unit.Runner[schema.ReasoningStep], opts ...ReActOption) (*ReActAgent, error) {
	if thinker == nil {
		return nil, fmt.Errorf("react agent requires a reasoning unit")
	}
	a := &ReActAgent{
		thinker:  thinker,
		tools:    map[string]Tool{schema.ActionCalculate: CalculatorTool{}},
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(a)
	}
	g := New[ReActState]("react").
		AddNode(nodeThink, a.think).
		AddNode(nodeAct, a.act).
		AddNode(nodeRespond, a.respond).
		SetEntry(nodeThink).
		AddConditionalEdges(nodeThink, a.shouldContinue, map[string]string{
			routeContinue: nodeAct,
			routeRespond:  nodeRespond,
		}).
		AddEdge(nodeAct, nodeThink).
		AddEdge(nodeRespond, End).
		// think and act per step plus the final respond
		SetStepLimit(2*a.maxSteps + 1)
	if err := g.Compile(); err != nil {
		return nil, err
	}
	a.graph = g
	return a, nil
}

func (a *ReActAgent) Run(ctx context.Context, question string) (*ReActState, error) {
	state := &ReActState{Question: question, Observations: []Observation{}}
	if _, err := a.graph.Run(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}

func (a *ReActAgent) think(ctx context.Context, s *ReActState) error {
	step, err := a.thinker.Run(ctx, map[string]interface{}{
		"question":     s.Question,
		"observations": observationValues(s.Observations),
	}, nil, nil)
	if err != nil {
		return err
	}
	s.Current = step
	s.Steps++
	logutil.GetLogger(ctx).Debug("react think",
		zap.Int("step", s.Steps), zap.String("action", step.Action), zap.String("input", step.ActionInput))
	return nil
}

func (a *ReActAgent) shouldContinue(s *ReActState) string {
	if s.Current == nil || s.Current.Action == schema.ActionRespond {
		return routeRespond
	}
	if s.Steps >= a.maxSteps {
		return routeRespond
	}
	return routeContinue
}

func (a *ReActAgent) act(ctx context.Context, s *ReActState) error {
	step := s.Current
	tool, ok := a.tools[step.Action]
	var result string
	if !ok {
		result = "Unknown action: " + step.Action
	} else {
		var err error
		if result, err = tool.Run(ctx, step.ActionInput); err != nil {
			return err
		}
	}
	s.Observations = append(s.Observations, Observation{
		Action:      step.Action,
		ActionInput: step.ActionInput,
		Result:      result,
	})
	return nil
}

func (a *ReActAgent) respond(ctx context.Context, s *ReActState) error {
	sources := make([]string, 0, len(s.Observations))
	for _, o := range s.Observations {
		sources = append(sources, o.Action)
	}
	final := &schema.FinalResponse{Sources: sources, Confidence: respondConfidence}
	switch {
	case s.Current != nil && s.Current.Action == schema.ActionRespond:
		final.Answer = s.Current.ActionInput
	case len(s.Observations) > 0:
		final.Answer = s.Observations[len(s.Observations)-1].Result
		final.Confidence = exhaustedConfidence
	case s.Current != nil:
		final.Answer = s.Current.Thought
		final.Confidence = exhaustedConfidence
	}
	s.Final = final
	return nil
}

// observationValues exposes observations to templates with their json keys.
func observationValues(obs []Observation) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(obs))
	for _, o := range obs {
		out = append(out, map[string]interface{}{
			"action":       o.Action,
			"action_input": o.ActionInput,
			"result":       o.Result,
		})
	}
	return out
}
