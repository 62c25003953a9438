package impl

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// ErrMsgNoPlan is recorded when the architect runs without a plan.
const ErrMsgNoPlan = "No plan available for architect"

// extensionPriority orders fallback tasks by file type.
var extensionPriority = map[string]int{
	".json": 0,
	".html": 0,
	".py":   1,
	".css":  2,
	".js":   3,
	".md":   4,
}

// Architect breaks a Plan into an ordered TaskPlan.
type Architect struct {
	core.Base
}

// NewArchitect creates the architect stage.
func NewArchitect(deps core.Deps) *Architect {
	return &Architect{Base: core.NewBase(StageArchitect, "Breaks the plan into ordered implementation tasks", deps)}
}

// Run implements core.Stage.
func (a *Architect) Run(ctx context.Context, s state.State) (state.Update, error) {
	plan, ok := s.Plan.Get()
	if !ok {
		return a.Fail(ErrMsgNoPlan), nil
	}
	log := a.Logger()

	tp, tier, ok := a.generate(ctx, plan)
	if !ok {
		var err error
		tp, err = FallbackTaskPlan(plan)
		if err != nil {
			return state.Update{}, err
		}
		tier = tierFallback
		log.Warn("using deterministic task plan", zap.Int("steps", len(tp.Steps)))
	}
	a.Deps().Metrics.Tier(StageArchitect, tier)

	log.Info("architecture created",
		zap.String("tier", tier),
		zap.Strings("files", tp.Filepaths()))

	return state.Update{
		Phase:    state.Some(state.PhaseArchitecting),
		Status:   state.Some(state.StatusArchitected),
		TaskPlan: state.Some(tp),
		Log:      []state.LogEntry{a.Entry("%d implementation steps (%s)", len(tp.Steps), tier)},
	}, nil
}

// generate tries structured output, then recovery.
func (a *Architect) generate(ctx context.Context, plan state.Plan) (state.TaskPlan, string, bool) {
	log := a.Logger()

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		log.Error("encode plan", zap.Error(err))
		return state.TaskPlan{}, "", false
	}
	prompt, err := render("architect", config.PromptArchitect, map[string]string{"PlanJSON": string(planJSON)})
	if err != nil {
		log.Error("render prompt", zap.Error(err))
		return state.TaskPlan{}, "", false
	}
	m, err := a.Model(ctx, llm.RoleArchitect)
	if err != nil {
		log.Error("no architect model", zap.Error(err))
		return state.TaskPlan{}, "", false
	}

	tp, tier, err := structured(ctx, m, prompt, taskPlanSchema, recovery.TaskPlanFields(plan))
	if err != nil {
		log.Warn("task plan generation failed", zap.Error(err), zap.Bool("recoverable", llm.IsRecoverable(err)))
		return state.TaskPlan{}, "", false
	}
	return tp, tier, len(tp.Steps) > 0
}

// FallbackTaskPlan synthesizes one task per planned file. Each task depends
// on every file declared before it, and tasks are ordered by file type with
// ties keeping declaration order.
func FallbackTaskPlan(plan state.Plan) (state.TaskPlan, error) {
	steps := make([]state.ImplementationTask, 0, len(plan.Files))
	for i, f := range plan.Files {
		priority, ok := extensionPriority[strings.ToLower(path.Ext(f.Path))]
		if !ok {
			priority = i
		}
		desc, err := render("architect-fallback", config.PromptArchitectFallbackTask, map[string]any{
			"Path":      f.Path,
			"Name":      plan.Name,
			"Purpose":   f.Purpose,
			"TechStack": plan.TechStack,
			"Features":  plan.Features,
		})
		if err != nil {
			return state.TaskPlan{}, fmt.Errorf("fallback task for %s: %w", f.Path, err)
		}
		deps := make([]string, 0, i)
		for _, prev := range plan.Files[:i] {
			deps = append(deps, prev.Path)
		}
		steps = append(steps, state.ImplementationTask{
			Filepath:        f.Path,
			TaskDescription: desc,
			Dependencies:    deps,
			ExpectedExports: []string{},
			Priority:        priority,
		})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Priority < steps[j].Priority })
	return state.TaskPlan{Plan: plan, Steps: steps}, nil
}
