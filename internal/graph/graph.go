// Package graph orchestrates inference units as state graphs. Nodes mutate
// a shared state value; edges pick the next node. Execution is delegated to
// langgraphgo's typed state graph; this package adds build-time validation,
// a step budget and keyed conditional routing on top of it.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lg "github.com/smallnest/langgraphgo/graph"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// End terminates a run when used as an edge target.
const End = lg.END

const DefaultStepLimit = 25

var ErrStepLimit = errors.New("graph step limit reached")

type NodeFunc[S any] func(ctx context.Context, state *S) error

// RouteFunc returns a key looked up in the conditional edge's mapping.
type RouteFunc[S any] func(state *S) string

type conditional[S any] struct {
	route   RouteFunc[S]
	targets map[string]string
}

type Graph[S any] struct {
	name      string
	entry     string
	stepLimit int
	nodes     map[string]NodeFunc[S]
	order     []string
	edges     map[string]string
	routes    map[string]conditional[S]
	errs      []error

	once     sync.Once
	runnable *lg.StateRunnableTyped[*S]
	buildErr error
}

// runInfo is the per run bookkeeping carried through the context, since the
// compiled graph is shared between runs.
type runInfo struct {
	steps    int
	routeErr error
}

type runInfoKey struct{}

func runInfoFrom(ctx context.Context) *runInfo {
	if ri, ok := ctx.Value(runInfoKey{}).(*runInfo); ok {
		return ri
	}
	return &runInfo{}
}

func New[S any](name string) *Graph[S] {
	return &Graph[S]{
		name:      name,
		stepLimit: DefaultStepLimit,
		nodes:     map[string]NodeFunc[S]{},
		edges:     map[string]string{},
		routes:    map[string]conditional[S]{},
	}
}

func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	switch {
	case name == "" || name == End:
		g.errs = append(g.errs, fmt.Errorf("invalid node name %q", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %s has no func", name))
	default:
		if _, ok := g.nodes[name]; ok {
			g.errs = append(g.errs, fmt.Errorf("node %s already exists", name))
			break
		}
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("node %s already has an outgoing edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

func (g *Graph[S]) AddConditionalEdges(from string, route RouteFunc[S], targets map[string]string) *Graph[S] {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("node %s already has an outgoing edge", from))
		return g
	}
	if route == nil || len(targets) == 0 {
		g.errs = append(g.errs, fmt.Errorf("conditional edge from %s needs a route and targets", from))
		return g
	}
	g.routes[from] = conditional[S]{route: route, targets: targets}
	return g
}

func (g *Graph[S]) SetEntry(name string) *Graph[S] {
	g.entry = name
	return g
}

func (g *Graph[S]) SetStepLimit(n int) *Graph[S] {
	g.stepLimit = n
	return g
}

func (g *Graph[S]) hasOutgoing(from string) bool {
	_, static := g.edges[from]
	_, cond := g.routes[from]
	return static || cond
}

// Validate reports builder errors and edges that point at unknown nodes.
func (g *Graph[S]) Validate() error {
	errs := append([]error(nil), g.errs...)
	if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry node %q not found", g.entry))
	}
	known := func(name string) bool {
		_, ok := g.nodes[name]
		return ok || name == End
	}
	for _, name := range g.order {
		if !g.hasOutgoing(name) {
			errs = append(errs, fmt.Errorf("node %s has no outgoing edge", name))
		}
	}
	for from, to := range g.edges {
		if !known(from) || !known(to) {
			errs = append(errs, fmt.Errorf("edge %s -> %s references an unknown node", from, to))
		}
	}
	for from, c := range g.routes {
		if !known(from) {
			errs = append(errs, fmt.Errorf("conditional edge from unknown node %s", from))
		}
		for key, to := range c.targets {
			if !known(to) {
				errs = append(errs, fmt.Errorf("route %s[%s] -> %s references an unknown node", from, key, to))
			}
		}
	}
	return errors.Join(errs...)
}

// Compile validates the graph and builds the underlying state graph. It is
// safe to call more than once; Run calls it on first use.
func (g *Graph[S]) Compile() error {
	g.once.Do(func() {
		if err := g.Validate(); err != nil {
			g.buildErr = err
			return
		}
		sg := lg.NewStateGraphTyped[*S]()
		for _, name := range g.order {
			sg.AddNode(name, g.name+"."+name, g.wrapNode(name, g.nodes[name]))
		}
		for from, to := range g.edges {
			sg.AddEdge(from, to)
		}
		for from, c := range g.routes {
			sg.AddConditionalEdge(from, g.wrapRoute(from, c))
		}
		sg.SetEntryPoint(g.entry)
		g.runnable, g.buildErr = sg.Compile()
	})
	return g.buildErr
}

func (g *Graph[S]) wrapNode(name string, fn NodeFunc[S]) func(ctx context.Context, state *S) (*S, error) {
	return func(ctx context.Context, state *S) (*S, error) {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		ri := runInfoFrom(ctx)
		if g.stepLimit > 0 && ri.steps >= g.stepLimit {
			return state, fmt.Errorf("%w: %d steps at node %s", ErrStepLimit, ri.steps, name)
		}
		start := time.Now()
		if err := fn(ctx, state); err != nil {
			return state, err
		}
		ri.steps++
		logutil.GetLogger(ctx).Debug("graph step",
			zap.String("graph", g.name), zap.String("node", name), zap.Duration("cost", time.Since(start)))
		return state, nil
	}
}

// wrapRoute maps the route key onto a node name. An unmapped key is kept
// on the run and reported by Run, the underlying graph only sees an empty
// target.
func (g *Graph[S]) wrapRoute(from string, c conditional[S]) func(ctx context.Context, state *S) string {
	return func(ctx context.Context, state *S) string {
		key := c.route(state)
		to, ok := c.targets[key]
		if !ok {
			runInfoFrom(ctx).routeErr = fmt.Errorf("node %s routed to unmapped key %q", from, key)
			return ""
		}
		return to
	}
}

// Run walks the graph from the entry node until End and returns the
// number of node executions.
func (g *Graph[S]) Run(ctx context.Context, state *S) (int, error) {
	if err := g.Compile(); err != nil {
		return 0, err
	}
	ri := &runInfo{}
	ctx = context.WithValue(ctx, runInfoKey{}, ri)
	if _, err := g.runnable.Invoke(ctx, state); err != nil {
		if ri.routeErr != nil {
			return ri.steps, ri.routeErr
		}
		return ri.steps, err
	}
	return ri.steps, nil
}
