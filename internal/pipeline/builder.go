// Package pipeline wires the builder stages into an eino graph and exposes
// the single entry point that runs a generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/compose"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/impl"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

const (
	// DefaultStepLimit bounds stage executions when no budget is configured.
	DefaultStepLimit = 100

	graphName = "builder"
)

var (
	// ErrStepLimit is matched by errors.Is on a *StepLimitError.
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrUnknownNode = errors.New("unknown node")
)

// StepLimitError reports that a run was aborted by the step ceiling.
type StepLimitError struct {
	Limit int
	Node  string
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit of %d reached before running %s", e.Limit, e.Node)
}

func (e *StepLimitError) Is(target error) bool {
	return target == ErrStepLimit || target == compose.ErrExceedMaxSteps
}

// Edge is one routing rule of the builder graph.
type Edge struct {
	From        string   `json:"from" yaml:"from"`
	To          []string `json:"to" yaml:"to"`
	Conditional bool     `json:"conditional" yaml:"conditional"`
}

// RouteAfterCoder loops on the coder until every step has been attempted.
func RouteAfterCoder(s state.State) string {
	if cs, ok := s.CoderState.Get(); ok && !cs.Done() {
		return impl.StageCoder
	}
	return impl.StageReviewer
}

// RouteAfterReview sends failing files to the fixer until they all pass or
// the iteration cap forces acceptance.
func RouteAfterReview(s state.State) string {
	rs, ok := s.ReviewState.Get()
	if !ok || rs.AllPassed || rs.CapReached() {
		return impl.StageTestGenerator
	}
	return impl.StageFixer
}

// halted ends a run as soon as a stage reports missing input.
func halted(s state.State) bool { return s.Phase == state.PhaseFailed }

type route struct {
	from string
	to   []string
	pick func(state.State) string
}

func fixed(to string) func(state.State) string {
	return func(state.State) string { return to }
}

// routes is the builder topology. Every node may also leave for END when
// the state is halted.
var routes = []route{
	{impl.StagePlanner, []string{impl.StageArchitect}, fixed(impl.StageArchitect)},
	{impl.StageArchitect, []string{impl.StageCoder}, fixed(impl.StageCoder)},
	{impl.StageCoder, []string{impl.StageCoder, impl.StageReviewer}, RouteAfterCoder},
	{impl.StageReviewer, []string{impl.StageFixer, impl.StageTestGenerator}, RouteAfterReview},
	{impl.StageFixer, []string{impl.StageReviewer}, fixed(impl.StageReviewer)},
	{impl.StageTestGenerator, []string{impl.StageTestRunner}, fixed(impl.StageTestRunner)},
	{impl.StageTestRunner, []string{impl.StageFinalizer}, fixed(impl.StageFinalizer)},
	{impl.StageFinalizer, []string{compose.END}, fixed(compose.END)},
}

// next is where a run goes after from produced s.
func next(from string, s state.State) string {
	if halted(s) {
		return compose.END
	}
	for _, r := range routes {
		if r.from == from {
			return r.pick(s)
		}
	}
	return compose.END
}

// Graph is the compiled builder graph.
type Graph struct {
	runnable compose.Runnable[state.State, state.State]
}

// BuildGraph compiles the builder graph over stages. Every stage named by
// the routing rules must be present.
func BuildGraph(ctx context.Context, stages []core.Stage) (*Graph, error) {
	byName := make(map[string]core.Stage, len(stages))
	for _, st := range stages {
		byName[st.Name()] = st
	}
	for _, r := range routes {
		for _, n := range append([]string{r.from}, r.to...) {
			if _, ok := byName[n]; !ok && n != compose.END {
				return nil, fmt.Errorf("compile builder graph: %w: %s", ErrUnknownNode, n)
			}
		}
	}

	g := compose.NewGraph[state.State, state.State]()
	for _, st := range stages {
		if err := g.AddLambdaNode(st.Name(), stageLambda(st), compose.WithNodeName(st.Name())); err != nil {
			return nil, fmt.Errorf("add stage %s: %w", st.Name(), err)
		}
	}
	if err := g.AddEdge(compose.START, impl.StagePlanner); err != nil {
		return nil, fmt.Errorf("add entry edge: %w", err)
	}
	for _, r := range routes {
		from := r.from
		ends := map[string]bool{compose.END: true}
		for _, to := range r.to {
			ends[to] = true
		}
		branch := compose.NewGraphBranch(func(_ context.Context, s state.State) (string, error) {
			return next(from, s), nil
		}, ends)
		if err := g.AddBranch(from, branch); err != nil {
			return nil, fmt.Errorf("add branch from %s: %w", from, err)
		}
	}

	runnable, err := g.Compile(ctx,
		compose.WithGraphName(graphName),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(DefaultStepLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("compile builder graph: %w", err)
	}
	return &Graph{runnable: runnable}, nil
}

// Entry is the first stage of every run.
func (g *Graph) Entry() string { return impl.StagePlanner }

// Edges lists the routing rules in topology order, without the halt exits.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(routes))
	for _, r := range routes {
		out = append(out, Edge{From: r.from, To: append([]string(nil), r.to...), Conditional: len(r.to) > 1})
	}
	return out
}

// Invoke runs the graph from init with at most stepLimit stage executions.
// On error the last merged state is returned alongside it.
func (g *Graph) Invoke(ctx context.Context, init state.State, stepLimit int, opts ...compose.Option) (state.State, error) {
	p := &progress{last: init}
	ctx = context.WithValue(ctx, progressKey{}, p)
	opts = append(opts, compose.WithRuntimeMaxSteps(stepLimit))

	final, err := g.runnable.Invoke(ctx, init, opts...)
	if err == nil {
		return final, nil
	}
	last, node := p.snapshot()
	if errors.Is(err, compose.ErrExceedMaxSteps) {
		pending := impl.StagePlanner
		if node != "" {
			pending = next(node, last)
		}
		return last, &StepLimitError{Limit: stepLimit, Node: pending}
	}
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		err = fmt.Errorf("%w: %v", cerr, err)
	}
	return last, err
}

// progress remembers the latest merged state of a run so aborted runs can
// still report it.
type progress struct {
	mu   sync.Mutex
	last state.State
	node string
}

type progressKey struct{}

func (p *progress) record(node string, s state.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.node, p.last = node, s
}

func (p *progress) snapshot() (state.State, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.node
}

// stageLambda adapts a stage to a graph node that folds its update into the
// state it was given.
func stageLambda(st core.Stage) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s state.State) (state.State, error) {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		u, err := st.Run(ctx, s)
		if err != nil {
			return s, fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		merged := s.Apply(u)
		if p, ok := ctx.Value(progressKey{}).(*progress); ok {
			p.record(st.Name(), merged)
		}
		return merged, nil
	})
}
