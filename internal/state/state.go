package state

import (
	"slices"
	"time"
)

// State is the accumulated record the engine threads through every stage.
type State struct {
	UserPrompt   string               `json:"user_prompt"`
	ProjectPath  string               `json:"project_path"`
	Phase        Phase                `json:"current_phase"`
	Status       Status               `json:"status"`
	Plan         Option[Plan]         `json:"plan"`
	TaskPlan     Option[TaskPlan]     `json:"task_plan"`
	CoderState   Option[CoderState]   `json:"coder_state"`
	ReviewState  Option[ReviewState]  `json:"review_state"`
	FixReport    Option[FixReport]    `json:"fix_report"`
	TestRunState Option[TestRunState] `json:"test_run_state"`
	FinalSummary string               `json:"final_summary"`
	Errors       []string             `json:"errors"`
	Log          []LogEntry           `json:"execution_log"`
	StartedAt    time.Time            `json:"started_at"`
	CompletedAt  Option[time.Time]    `json:"completed_at"`
}

// New returns the initial state for a run.
func New(prompt, projectPath string, now time.Time) State {
	return State{
		UserPrompt:  prompt,
		ProjectPath: projectPath,
		Phase:       PhaseInitializing,
		Status:      StatusInitialized,
		StartedAt:   now,
	}
}

// Update is the partial state a stage returns. Absent fields leave the
// current value untouched; Errors and Log are appended.
type Update struct {
	Phase        Option[Phase]
	Status       Option[Status]
	Plan         Option[Plan]
	TaskPlan     Option[TaskPlan]
	CoderState   Option[CoderState]
	ReviewState  Option[ReviewState]
	FixReport    Option[FixReport]
	TestRunState Option[TestRunState]
	ProjectPath  Option[string]
	FinalSummary Option[string]
	CompletedAt  Option[time.Time]
	Errors       []string
	Log          []LogEntry
}

// Apply merges u into a copy of s.
func (s State) Apply(u Update) State {
	if v, ok := u.Phase.Get(); ok {
		s.Phase = v
	}
	if v, ok := u.Status.Get(); ok {
		s.Status = v
	}
	if u.Plan.IsSome() {
		s.Plan = u.Plan
	}
	if u.TaskPlan.IsSome() {
		s.TaskPlan = u.TaskPlan
	}
	if u.CoderState.IsSome() {
		s.CoderState = u.CoderState
	}
	if u.ReviewState.IsSome() {
		s.ReviewState = u.ReviewState
	}
	if u.FixReport.IsSome() {
		s.FixReport = u.FixReport
	}
	if u.TestRunState.IsSome() {
		s.TestRunState = u.TestRunState
	}
	if v, ok := u.ProjectPath.Get(); ok {
		s.ProjectPath = v
	}
	if v, ok := u.FinalSummary.Get(); ok {
		s.FinalSummary = v
	}
	if u.CompletedAt.IsSome() {
		s.CompletedAt = u.CompletedAt
	}
	if len(u.Errors) > 0 {
		s.Errors = append(slices.Clone(s.Errors), u.Errors...)
	}
	if len(u.Log) > 0 {
		s.Log = append(slices.Clone(s.Log), u.Log...)
	}
	return s
}

// Failed builds the update a stage returns when required input is missing.
func Failed(msg string) Update {
	return Update{
		Phase:  Some(PhaseFailed),
		Status: Some(StatusFailed),
		Errors: []string{msg},
	}
}
