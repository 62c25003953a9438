package impl

import "github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"

var (
	_ core.Stage = (*Planner)(nil)
	_ core.Stage = (*Architect)(nil)
	_ core.Stage = (*Coder)(nil)
	_ core.Stage = (*Reviewer)(nil)
	_ core.Stage = (*Fixer)(nil)
	_ core.Stage = (*TestGenerator)(nil)
	_ core.Stage = (*TestRunner)(nil)
	_ core.Stage = (*Finalizer)(nil)
)

// Stages builds every pipeline stage in execution order.
func Stages(deps core.Deps) []core.Stage {
	return []core.Stage{
		NewPlanner(deps),
		NewArchitect(deps),
		NewCoder(deps),
		NewReviewer(deps),
		NewFixer(deps),
		NewTestGenerator(deps),
		NewTestRunner(deps),
		NewFinalizer(deps),
	}
}
