package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 2 * 10", 22},
		{"(2 + 2) * 10", 40},
		{"7 / 2", 3.5},
		{"-3 + 5", 2},
		{"10 % 4", 2},
		{"1.5 * 4", 6},
		{"2 - -3", 5},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, expr := range []string{"", "1 / 0", "5 % 0", "2 +", "x + 1", "f(1)"} {
		_, err := Evaluate(expr)
		require.Error(t, err, expr)
	}
}

func TestCalculatorTool(t *testing.T) {
	ctx := context.Background()
	calc := CalculatorTool{}
	out, err := calc.Run(ctx, "2 + 2 * 10")
	require.NoError(t, err)
	require.Equal(t, "Result: 22", out)

	out, err = calc.Run(ctx, "import os")
	require.NoError(t, err)
	require.Equal(t, "Error: Invalid characters in expression", out)

	out, err = calc.Run(ctx, "1 / 0")
	require.NoError(t, err)
	require.Equal(t, "Calculation error: division by zero", out)
}

func TestSearchTool(t *testing.T) {
	ctx := context.Background()
	store := memory.NewNaiveStore()
	_, err := store.Add(ctx, "Python was created by Guido van Rossum", map[string]interface{}{"source": "wiki"})
	require.NoError(t, err)

	tool := NewSearchTool(store, 0)
	out, err := tool.Run(ctx, "python")
	require.NoError(t, err)
	require.Equal(t, "[1] Python was created by Guido van Rossum (Source: wiki)", out)

	out, err = tool.Run(ctx, "weather")
	require.NoError(t, err)
	require.Contains(t, out, "nothing relevant found")

	out, err = NewSearchTool(nil, 3).Run(ctx, "weather")
	require.NoError(t, err)
	require.Contains(t, out, "no knowledge base")
}
