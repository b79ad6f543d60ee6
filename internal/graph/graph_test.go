package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type counterState struct {
	visits []string
	n      int
}

func visit(name string) NodeFunc[counterState] {
	return func(ctx context.Context, s *counterState) error {
		s.visits = append(s.visits, name)
		s.n++
		return nil
	}
}

func TestGraphLinear(t *testing.T) {
	g := New[counterState]("linear").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		SetEntry("a").
		AddEdge("a", "b").
		AddEdge("b", End)
	s := &counterState{}
	steps, err := g.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 2, steps)
	require.Equal(t, []string{"a", "b"}, s.visits)
}

func TestGraphConditionalLoop(t *testing.T) {
	g := New[counterState]("loop").
		AddNode("inc", visit("inc")).
		AddNode("done", visit("done")).
		SetEntry("inc").
		AddConditionalEdges("inc", func(s *counterState) string {
			if s.n < 3 {
				return "again"
			}
			return "stop"
		}, map[string]string{"again": "inc", "stop": "done"}).
		AddEdge("done", End)
	s := &counterState{}
	steps, err := g.Run(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 4, steps)
	require.Equal(t, []string{"inc", "inc", "inc", "done"}, s.visits)
}

func TestGraphStepLimit(t *testing.T) {
	g := New[counterState]("forever").
		AddNode("spin", visit("spin")).
		SetEntry("spin").
		AddEdge("spin", "spin").
		SetStepLimit(5)
	s := &counterState{}
	steps, err := g.Run(context.Background(), s)
	require.ErrorIs(t, err, ErrStepLimit)
	require.Equal(t, 5, steps)
}

func TestGraphNodeError(t *testing.T) {
	boom := errors.New("boom")
	g := New[counterState]("fail").
		AddNode("a", func(ctx context.Context, s *counterState) error { return boom }).
		SetEntry("a").
		AddEdge("a", End)
	_, err := g.Run(context.Background(), &counterState{})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "node a")
}

func TestGraphUnmappedRoute(t *testing.T) {
	g := New[counterState]("route").
		AddNode("a", visit("a")).
		SetEntry("a").
		AddConditionalEdges("a", func(*counterState) string { return "nowhere" }, map[string]string{"x": End})
	_, err := g.Run(context.Background(), &counterState{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmapped key")
}

func TestGraphCancelled(t *testing.T) {
	g := New[counterState]("cancel").
		AddNode("a", visit("a")).
		SetEntry("a").
		AddEdge("a", End)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps, err := g.Run(ctx, &counterState{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, steps)
}

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Graph[counterState]
		msg   string
	}{
		{"missing entry", func() *Graph[counterState] {
			return New[counterState]("g").AddNode("a", visit("a")).AddEdge("a", End)
		}, "entry node"},
		{"dangling edge", func() *Graph[counterState] {
			return New[counterState]("g").AddNode("a", visit("a")).SetEntry("a").AddEdge("a", "b")
		}, "unknown node"},
		{"no outgoing edge", func() *Graph[counterState] {
			return New[counterState]("g").AddNode("a", visit("a")).SetEntry("a")
		}, "no outgoing edge"},
		{"duplicate node", func() *Graph[counterState] {
			return New[counterState]("g").AddNode("a", visit("a")).AddNode("a", visit("a")).SetEntry("a").AddEdge("a", End)
		}, "already exists"},
		{"reserved name", func() *Graph[counterState] {
			return New[counterState]("g").AddNode(End, visit("a"))
		}, "invalid node name"},
		{"two outgoing edges", func() *Graph[counterState] {
			return New[counterState]("g").AddNode("a", visit("a")).SetEntry("a").AddEdge("a", End).AddEdge("a", "a")
		}, "already has an outgoing edge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestGraphRunsAreIndependent(t *testing.T) {
	g := New[counterState]("reuse").
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		SetEntry("a").
		AddEdge("a", "b").
		AddEdge("b", End).
		SetStepLimit(2)
	require.NoError(t, g.Compile())
	for i := 0; i < 3; i++ {
		s := &counterState{}
		steps, err := g.Run(context.Background(), s)
		require.NoError(t, err)
		require.Equal(t, 2, steps)
		require.Equal(t, []string{"a", "b"}, s.visits)
	}
}

func TestGraphNodePanicBecomesError(t *testing.T) {
	g := New[counterState]("panic").
		AddNode("a", func(ctx context.Context, s *counterState) error { panic("bad node") }).
		SetEntry("a").
		AddEdge("a", End)
	_, err := g.Run(context.Background(), &counterState{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad node")
}

func TestGraphCompileReportsValidation(t *testing.T) {
	g := New[counterState]("broken").AddNode("a", visit("a"))
	require.Error(t, g.Compile())
	_, err := g.Run(context.Background(), &counterState{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "entry node")
}
