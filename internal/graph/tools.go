package graph

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/schema"
)

// Tool results are observations fed back to the model, so tool failures
// are reported in the returned text rather than as errors. An error means
// the run itself cannot continue.
type Tool interface {
	Name() string
	Run(ctx context.Context, input string) (string, error)
}

type SearchTool struct {
	store memory.Store
	topK  int
}

func NewSearchTool(store memory.Store, topK int) *SearchTool {
	if topK <= 0 {
		topK = 3
	}
	return &SearchTool{store: store, topK: topK}
}

func (t *SearchTool) Name() string { return schema.ActionSearch }

func (t *SearchTool) Run(ctx context.Context, input string) (string, error) {
	if t.store == nil {
		return fmt.Sprintf("Search results for '%s': no knowledge base configured.", input), nil
	}
	chunks, err := t.store.Search(ctx, input, t.topK)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", input, err)
	}
	if len(chunks) == 0 {
		return fmt.Sprintf("Search results for '%s': nothing relevant found.", input), nil
	}
	return memory.FormatForPrompt(chunks), nil
}

type CalculatorTool struct{}

func (CalculatorTool) Name() string { return schema.ActionCalculate }

const calculatorChars = "0123456789+-*/().% "

func (CalculatorTool) Run(ctx context.Context, input string) (string, error) {
	expr := strings.TrimSpace(input)
	for _, r := range expr {
		if !strings.ContainsRune(calculatorChars, r) {
			return "Error: Invalid characters in expression", nil
		}
	}
	v, err := Evaluate(expr)
	if err != nil {
		return "Calculation error: " + err.Error(), nil
	}
	return "Result: " + strconv.FormatFloat(v, 'g', -1, 64), nil
}

// Evaluate computes an arithmetic expression of numbers, + - * / %,
// unary signs and parentheses.
func Evaluate(input string) (float64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, fmt.Errorf("empty expression")
	}
	program, err := expr.Compile(input, expr.Env(nil))
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %w", err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return 0, err
	}
	var v float64
	switch n := out.(type) {
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case float64:
		v = n
	default:
		return 0, fmt.Errorf("expression is not numeric: %v", out)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("division by zero")
	}
	return v, nil
}
