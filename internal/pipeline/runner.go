package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/impl"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// EventType tags a progress event.
type EventType string

const (
	EventStarted    EventType = "started"
	EventStageStart EventType = "stage_start"
	EventStageEnd   EventType = "stage_end"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// Event is one progress notification from a run. Observers are called
// synchronously, in order, from the goroutine running the pipeline.
type Event struct {
	Type     EventType     `json:"type"`
	RunID    string        `json:"run_id"`
	Stage    string        `json:"stage,omitempty"`
	Step     int           `json:"step"`
	Duration time.Duration `json:"duration,omitempty"`
	Status   state.Status  `json:"status,omitempty"`
	Message  string        `json:"message,omitempty"`
	Time     time.Time     `json:"time"`
}

// Observer receives run events.
type Observer func(Event)

// Result is what a finished run reports to its caller.
type Result struct {
	RunID           string       `json:"run_id"`
	Status          state.Status `json:"status"`
	ProjectPath     string       `json:"project_path"`
	Summary         string       `json:"summary"`
	Errors          []string     `json:"errors"`
	Files           []string     `json:"files"`
	UnresolvedFiles []string     `json:"unresolved_files,omitempty"`
}

// Runner executes the builder graph for one project root.
type Runner struct {
	deps      core.Deps
	stepLimit int
	observers []Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver subscribes o to every run.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithDefaultStepLimit sets the budget used when Run is given none.
func WithDefaultStepLimit(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.stepLimit = n
		}
	}
}

// New prepares a runner over deps. The graph is built per run so stage
// loggers carry the run ID.
func New(deps core.Deps, opts ...Option) (*Runner, error) {
	if deps.FS == nil {
		return nil, errors.New("pipeline: project sandbox is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Options == (core.Options{}) {
		deps.Options = core.DefaultOptions()
	}
	r := &Runner{deps: deps, stepLimit: DefaultStepLimit}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Run generates a project from prompt. A stepBudget of zero or less uses the
// runner default. Stage failures are reported in Result.Status; the error is
// reserved for engine failures such as the step ceiling or cancellation, in
// which case Result still carries the last status reached.
func (r *Runner) Run(ctx context.Context, prompt string, stepBudget int, observers ...Observer) (Result, error) {
	runID := uuid.NewString()
	log := r.deps.Logger.With(zap.String("run_id", runID))
	if stepBudget <= 0 {
		stepBudget = r.stepLimit
	}

	deps := r.deps
	deps.Logger = log
	stages := impl.Stages(deps)
	g, err := BuildGraph(ctx, stages)
	if err != nil {
		return Result{RunID: runID, Status: state.StatusFailed}, err
	}

	all := append(append([]Observer(nil), r.observers...), observers...)
	emit := func(e Event) {
		e.RunID = runID
		e.Time = r.deps.Now()
		for _, o := range all {
			o(e)
		}
	}

	deps.Metrics.RunStarted()
	log.Info("run started", zap.Int("step_budget", stepBudget), zap.String("root", deps.FS.Root()))
	emit(Event{Type: EventStarted, Message: prompt})

	init := state.New(prompt, deps.FS.Root(), deps.Now())
	final, runErr := g.Invoke(ctx, init, stepBudget,
		compose.WithCallbacks(stageEvents(stages, deps, emit)))

	res := r.result(runID, final)
	deps.Metrics.RunFinished(string(res.Status))

	if runErr != nil {
		log.Error("run aborted", zap.Error(runErr), zap.String("status", string(res.Status)))
		emit(Event{Type: EventError, Status: res.Status, Message: runErr.Error()})
		return res, fmt.Errorf("run %s: %w", runID, runErr)
	}

	if res.Status == state.StatusFailed {
		log.Warn("run failed", zap.Strings("errors", res.Errors))
		emit(Event{Type: EventError, Status: res.Status, Message: strings.Join(res.Errors, "; ")})
		return res, nil
	}
	log.Info("run complete", zap.Int("files", len(res.Files)), zap.Strings("unresolved", res.UnresolvedFiles))
	emit(Event{Type: EventComplete, Status: res.Status, Message: res.Summary})
	return res, nil
}

func (r *Runner) result(runID string, s state.State) Result {
	res := Result{
		RunID:       runID,
		Status:      s.Status,
		ProjectPath: s.ProjectPath,
		Summary:     s.FinalSummary,
		Errors:      s.Errors,
	}
	if rs, ok := s.ReviewState.Get(); ok {
		res.UnresolvedFiles = rs.UnresolvedFiles
	}
	files, err := r.deps.FS.List(".")
	if err != nil {
		r.deps.Logger.Warn("list generated files", zap.Error(err))
	}
	res.Files = files
	return res
}

// stageEvents turns eino node callbacks into stage events and metrics.
// Callbacks for the graph itself are ignored.
func stageEvents(stages []core.Stage, deps core.Deps, emit func(Event)) callbacks.Handler {
	known := make(map[string]bool, len(stages))
	for _, st := range stages {
		known[st.Name()] = true
	}
	var (
		mu      sync.Mutex
		step    = -1
		started time.Time
	)
	end := func(stage string, err error) {
		mu.Lock()
		d, n := time.Since(started), step
		mu.Unlock()
		deps.Metrics.ObserveStage(stage, d)
		ev := Event{Type: EventStageEnd, Stage: stage, Step: n, Duration: d}
		if err != nil {
			ev.Message = err.Error()
		}
		emit(ev)
	}

	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			if info == nil || !known[info.Name] {
				return ctx
			}
			mu.Lock()
			step++
			started = time.Now()
			n := step
			mu.Unlock()
			emit(Event{Type: EventStageStart, Stage: info.Name, Step: n})
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
			if info != nil && known[info.Name] {
				end(info.Name, nil)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			if info != nil && known[info.Name] {
				end(info.Name, err)
			}
			return ctx
		}).
		Build()
}
