package impl

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// Stage names.
const (
	StagePlanner       = "planner"
	StageArchitect     = "architect"
	StageCoder         = "coder"
	StageReviewer      = "reviewer"
	StageFixer         = "fixer"
	StageTestGenerator = "test_generator"
	StageTestRunner    = "test_runner"
	StageFinalizer     = "finalizer"
)

// Failure messages recorded in State.Errors.
const (
	ErrMsgNoPrompt   = "No user prompt provided"
	ErrMsgNoPlanMade = "Failed to create project plan"
)

// Planner turns the user prompt into a Plan.
type Planner struct {
	core.Base
}

// NewPlanner creates the planner stage.
func NewPlanner(deps core.Deps) *Planner {
	return &Planner{Base: core.NewBase(StagePlanner, "Converts the user request into a project plan", deps)}
}

// Run implements core.Stage.
func (p *Planner) Run(ctx context.Context, s state.State) (state.Update, error) {
	if strings.TrimSpace(s.UserPrompt) == "" {
		return p.Fail(ErrMsgNoPrompt), nil
	}
	log := p.Logger()

	prompt, err := render("planner", config.PromptPlanner, map[string]string{"Request": s.UserPrompt})
	if err != nil {
		return state.Update{}, err
	}

	m, err := p.Model(ctx, llm.RolePlanning)
	if err != nil {
		log.Error("no planning model", zap.Error(err))
		return p.failWith(ErrMsgNoPlanMade, err), nil
	}

	plan, tier, err := structured[state.Plan](ctx, m, prompt, planSchema, recovery.PlanFields)
	if err != nil {
		log.Error("plan generation failed", zap.Error(err))
		return p.failWith(ErrMsgNoPlanMade, err), nil
	}
	p.Deps().Metrics.Tier(StagePlanner, tier)

	log.Info("plan created",
		zap.String("project", plan.Name),
		zap.String("tier", tier),
		zap.Int("features", len(plan.Features)),
		zap.Int("files", len(plan.Files)))

	return state.Update{
		Phase:  state.Some(state.PhasePlanning),
		Status: state.Some(state.StatusPlanned),
		Plan:   state.Some(plan),
		Log:    []state.LogEntry{p.Entry("Plan %q created with %d files", plan.Name, len(plan.Files))},
	}, nil
}

// failWith records msg plus the underlying cause.
func (p *Planner) failWith(msg string, cause error) state.Update {
	u := p.Fail(msg)
	u.Log = append(u.Log, p.Entry("cause: %v", cause))
	return u
}
