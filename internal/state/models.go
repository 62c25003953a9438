// Package state defines the records threaded through the builder pipeline.
// Every record is a value; stages return new records instead of mutating
// the ones they were handed.
package state

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// File describes one file a Plan intends to create.
type File struct {
	Path         string   `json:"path" validate:"required,nonempty"`
	Purpose      string   `json:"purpose"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Plan is the high-level project description produced by the planner.
type Plan struct {
	Name              string   `json:"name" validate:"required,nonempty"`
	Description       string   `json:"description"`
	TechStack         string   `json:"techstack"`
	Features          []string `json:"features"`
	Files             []File   `json:"files" validate:"required,min=1,dive"`
	ArchitectureNotes string   `json:"architecture_notes,omitempty"`
}

// ImplementationTask is one unit of work for the coder.
type ImplementationTask struct {
	Filepath        string   `json:"filepath" validate:"required,nonempty"`
	TaskDescription string   `json:"task_description"`
	Dependencies    []string `json:"dependencies,omitempty"`
	ExpectedExports []string `json:"expected_exports,omitempty"`
	// Priority orders tasks; lower runs earlier.
	Priority int `json:"priority" validate:"min=0"`
}

// TaskPlan is the ordered implementation breakdown of a Plan.
type TaskPlan struct {
	Plan  Plan                 `json:"plan"`
	Steps []ImplementationTask `json:"implementation_steps" validate:"required,min=1,dive"`
}

// Sorted returns a copy with steps stably ordered by ascending priority.
func (tp TaskPlan) Sorted() TaskPlan {
	steps := slices.Clone(tp.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})
	tp.Steps = steps
	return tp
}

// IsSorted reports whether steps are in non-decreasing priority order.
func (tp TaskPlan) IsSorted() bool {
	return sort.SliceIsSorted(tp.Steps, func(i, j int) bool {
		return tp.Steps[i].Priority < tp.Steps[j].Priority
	})
}

// Filepaths lists the step targets in order.
func (tp TaskPlan) Filepaths() []string {
	out := make([]string, 0, len(tp.Steps))
	for _, s := range tp.Steps {
		out = append(out, s.Filepath)
	}
	return out
}

// Contains reports whether a step targets path.
func (tp TaskPlan) Contains(path string) bool {
	for _, s := range tp.Steps {
		if s.Filepath == path {
			return true
		}
	}
	return false
}

// CoderState tracks progress through a TaskPlan.
type CoderState struct {
	TaskPlan       TaskPlan `json:"task_plan"`
	CurrentStepIdx int      `json:"current_step_idx"`
	CompletedFiles []string `json:"completed_files"`
	FailedFiles    []string `json:"failed_files"`
}

// NewCoderState starts at the first step of tp.
func NewCoderState(tp TaskPlan) CoderState {
	return CoderState{TaskPlan: tp, CompletedFiles: []string{}, FailedFiles: []string{}}
}

// Done reports whether every step has been attempted.
func (c CoderState) Done() bool {
	return c.CurrentStepIdx >= len(c.TaskPlan.Steps)
}

// Current returns the step to attempt next.
func (c CoderState) Current() (ImplementationTask, bool) {
	if c.Done() {
		return ImplementationTask{}, false
	}
	return c.TaskPlan.Steps[c.CurrentStepIdx], true
}

// Complete records the current step as written and advances.
func (c CoderState) Complete(path string) CoderState {
	next := c.clone()
	next.CompletedFiles = append(next.CompletedFiles, path)
	next.CurrentStepIdx++
	return next
}

// Fail records the current step as failed and advances.
func (c CoderState) Fail(path string) CoderState {
	next := c.clone()
	next.FailedFiles = append(next.FailedFiles, path)
	next.CurrentStepIdx++
	return next
}

func (c CoderState) clone() CoderState {
	c.CompletedFiles = slices.Clone(c.CompletedFiles)
	c.FailedFiles = slices.Clone(c.FailedFiles)
	return c
}

// Check verifies that completed and failed partition the attempted steps.
func (c CoderState) Check() error {
	if c.CurrentStepIdx < 0 || c.CurrentStepIdx > len(c.TaskPlan.Steps) {
		return fmt.Errorf("step index %d out of range [0,%d]", c.CurrentStepIdx, len(c.TaskPlan.Steps))
	}
	if got := len(c.CompletedFiles) + len(c.FailedFiles); got != c.CurrentStepIdx {
		return fmt.Errorf("%d files recorded for %d attempted steps", got, c.CurrentStepIdx)
	}
	attempted := make(map[string]int, c.CurrentStepIdx)
	for _, s := range c.TaskPlan.Steps[:c.CurrentStepIdx] {
		attempted[s.Filepath]++
	}
	seen := make(map[string]bool, c.CurrentStepIdx)
	for _, p := range c.CompletedFiles {
		seen[p] = true
	}
	for _, p := range c.FailedFiles {
		if seen[p] {
			return fmt.Errorf("%s is both completed and failed", p)
		}
	}
	for _, p := range append(slices.Clone(c.CompletedFiles), c.FailedFiles...) {
		if attempted[p] == 0 {
			return fmt.Errorf("%s recorded but not attempted", p)
		}
		attempted[p]--
	}
	return nil
}

// CodeIssue is one finding from a review.
type CodeIssue struct {
	IssueType   string   `json:"issue_type"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
	Severity    Severity `json:"severity" validate:"required,oneof=critical high medium low pass"`
}

// CodeReview is the verdict for a single file.
type CodeReview struct {
	Filepath       string      `json:"filepath" validate:"required"`
	Issues         []CodeIssue `json:"issues" validate:"dive"`
	Passed         bool        `json:"passed"`
	OverallQuality int         `json:"overall_quality" validate:"min=0,max=10"`
	Summary        string      `json:"summary"`
}

// Normalize returns a review that satisfies the failed-implies-issues rule.
func (r CodeReview) Normalize() CodeReview {
	if r.Passed || len(r.Issues) > 0 {
		return r
	}
	r.Issues = []CodeIssue{{
		IssueType:   "unspecified",
		Description: fmt.Sprintf("Review failed for %s without specific issues", r.Filepath),
		Suggestion:  "Manual review recommended",
		Severity:    SeverityMedium,
	}}
	return r
}

// ReviewState is the outcome of one reviewer pass.
type ReviewState struct {
	Reviews       []CodeReview `json:"reviews"`
	Iteration     int          `json:"iteration"`
	MaxIterations int          `json:"max_iterations"`
	AllPassed     bool         `json:"all_passed"`
	// UnresolvedFiles were still failing when the iteration cap forced acceptance.
	UnresolvedFiles []string `json:"unresolved_files,omitempty"`
}

// CapReached reports whether the iteration cap has been hit.
func (rs ReviewState) CapReached() bool {
	return rs.Iteration >= rs.MaxIterations
}

// Lookup finds the review for path.
func (rs ReviewState) Lookup(path string) (CodeReview, bool) {
	for _, r := range rs.Reviews {
		if r.Filepath == path {
			return r, true
		}
	}
	return CodeReview{}, false
}

// With returns a copy holding r, replacing any earlier review of the same file.
func (rs ReviewState) With(r CodeReview) ReviewState {
	reviews := slices.Clone(rs.Reviews)
	for i := range reviews {
		if reviews[i].Filepath == r.Filepath {
			reviews[i] = r
			rs.Reviews = reviews
			return rs
		}
	}
	rs.Reviews = append(reviews, r)
	return rs
}

// PassedFiles lists files whose review passed.
func (rs ReviewState) PassedFiles() []string {
	var out []string
	for _, r := range rs.Reviews {
		if r.Passed {
			out = append(out, r.Filepath)
		}
	}
	return out
}

// FailedFiles lists files whose review failed.
func (rs ReviewState) FailedFiles() []string {
	var out []string
	for _, r := range rs.Reviews {
		if !r.Passed {
			out = append(out, r.Filepath)
		}
	}
	return out
}

// Check verifies per-file uniqueness and review completeness.
func (rs ReviewState) Check() error {
	seen := make(map[string]bool, len(rs.Reviews))
	for _, r := range rs.Reviews {
		if seen[r.Filepath] {
			return fmt.Errorf("duplicate review for %s", r.Filepath)
		}
		seen[r.Filepath] = true
		if !r.Passed && len(r.Issues) == 0 {
			return fmt.Errorf("failed review for %s has no issues", r.Filepath)
		}
	}
	return nil
}

// FixFailure explains why a fix was not applied.
type FixFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// FixReport summarizes one fixer pass.
type FixReport struct {
	Fixed    []string     `json:"fixed"`
	Failed   []FixFailure `json:"failed"`
	Promoted []string     `json:"promoted,omitempty"`
}

// TestCase is one generated test artifact.
type TestCase struct {
	TestName    string `json:"test_name"`
	TestType    string `json:"test_type"`
	TargetFile  string `json:"target_file"`
	TestCode    string `json:"test_code"`
	Description string `json:"description"`
}

// TestPlan groups generated tests under one framework.
type TestPlan struct {
	TestFramework     string     `json:"test_framework"`
	TestFiles         []TestCase `json:"test_files"`
	SetupInstructions string     `json:"setup_instructions"`
}

// TestResult is the outcome of running one test.
type TestResult struct {
	TestName string        `json:"test_name"`
	Passed   bool          `json:"passed"`
	Output   string        `json:"output"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

// TestRunState carries the test plan and its results.
type TestRunState struct {
	TestPlan    Option[TestPlan] `json:"test_plan"`
	Results     []TestResult     `json:"results"`
	AllPassed   bool             `json:"all_passed"`
	TotalTests  int              `json:"total_tests"`
	PassedTests int              `json:"passed_tests"`
}

// Tally fills the aggregate counters from Results.
func (t TestRunState) Tally() TestRunState {
	t.TotalTests = len(t.Results)
	t.PassedTests = 0
	for _, r := range t.Results {
		if r.Passed {
			t.PassedTests++
		}
	}
	t.AllPassed = t.PassedTests == t.TotalTests
	return t
}

// LogEntry is one line of the execution log.
type LogEntry struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
