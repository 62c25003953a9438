package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// Schema tags used by the structured stages.
const (
	TagPlan       = "Plan"
	TagTaskPlan   = "TaskPlan"
	TagCodeReview = "CodeReview"
	TagWriteFile  = "write_file"
)

// DecodeFields parses a clean structured response.
func DecodeFields(raw json.RawMessage) (Fields, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode structured output: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("structured output is not an object")
	}
	return Fields(obj), nil
}

// PlanFields maps planner output to a Plan.
func PlanFields(f Fields) (state.Plan, error) {
	plan := state.Plan{
		Name:              f.String("name", "Project"),
		Description:       f.String("description", ""),
		TechStack:         f.String("techstack", f.String("tech_stack", "")),
		Features:          f.Strings("features"),
		ArchitectureNotes: f.String("architecture_notes", ""),
	}
	if strings.TrimSpace(plan.Name) == "" {
		plan.Name = "Project"
	}
	for _, fd := range f.Objects("files") {
		plan.Files = append(plan.Files, state.File{
			Path:         fd.String("path", ""),
			Purpose:      fd.String("purpose", "Project file"),
			Dependencies: fd.Strings("dependencies"),
		})
	}
	if err := state.Validate(plan); err != nil {
		return state.Plan{}, err
	}
	return plan, nil
}

// TaskPlanFields returns a mapper that builds a TaskPlan for plan, sorted by
// priority.
func TaskPlanFields(plan state.Plan) Mapper[state.TaskPlan] {
	return func(f Fields) (state.TaskPlan, error) {
		tp := state.TaskPlan{Plan: plan}
		for _, sd := range f.Objects("implementation_steps") {
			tp.Steps = append(tp.Steps, state.ImplementationTask{
				Filepath:        sd.String("filepath", ""),
				TaskDescription: sd.String("task_description", ""),
				Dependencies:    sd.Strings("dependencies"),
				ExpectedExports: sd.Strings("expected_exports"),
				Priority:        sd.Int("priority", 0),
			})
		}
		if err := state.Validate(tp); err != nil {
			return state.TaskPlan{}, err
		}
		return tp.Sorted(), nil
	}
}

// ReviewFields returns a mapper that builds a CodeReview for path. A record
// without a passed verdict, or with an issue of unrecognized severity, is
// rejected.
func ReviewFields(path string) Mapper[state.CodeReview] {
	return func(f Fields) (state.CodeReview, error) {
		if !f.Has("passed") {
			return state.CodeReview{}, errors.New("review has no passed verdict")
		}
		review := state.CodeReview{
			Filepath:       path,
			Passed:         f.Bool("passed", true),
			OverallQuality: f.Int("overall_quality", 7),
			Summary:        f.String("summary", ""),
		}
		for _, issue := range f.Objects("issues") {
			sev, err := state.ParseSeverity(issue.String("severity", "medium"))
			if err != nil {
				return state.CodeReview{}, err
			}
			review.Issues = append(review.Issues, state.CodeIssue{
				IssueType:   issue.String("issue_type", "unknown"),
				Description: issue.String("description", ""),
				Suggestion:  issue.String("suggestion", ""),
				Severity:    sev,
			})
		}
		review = review.Normalize()
		if err := state.Validate(review); err != nil {
			return state.CodeReview{}, err
		}
		return review, nil
	}
}
