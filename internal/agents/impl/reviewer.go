package impl

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// ErrMsgNoReviewInput is recorded when there is nothing to review against.
const ErrMsgNoReviewInput = "No coder state or task plan available"

// minReviewableChars is the trimmed length below which a file counts as
// missing.
const minReviewableChars = 5

// Reviewer grades every implemented file, re-reviewing only files that
// failed before.
type Reviewer struct {
	core.Base
}

// NewReviewer creates the reviewer stage.
func NewReviewer(deps core.Deps) *Reviewer {
	return &Reviewer{Base: core.NewBase(StageReviewer, "Reviews generated files for correctness and consistency", deps)}
}

// Run implements core.Stage.
func (r *Reviewer) Run(ctx context.Context, s state.State) (state.Update, error) {
	tp, ok := r.taskPlan(s)
	if !ok {
		return r.Fail(ErrMsgNoReviewInput), nil
	}
	deps := r.Deps()

	prior, hasPrior := s.ReviewState.Get()
	next := state.ReviewState{MaxIterations: deps.Options.MaxReviewIterations}
	if hasPrior {
		next.Iteration = prior.Iteration + 1
		next.MaxIterations = prior.MaxIterations
	}
	log := r.Logger().With(zap.Int("iteration", next.Iteration), zap.Int("max_iterations", next.MaxIterations))
	deps.Metrics.Iteration(next.Iteration)

	preserved := map[string]state.CodeReview{}
	var unresolved []string
	if hasPrior {
		for _, rv := range prior.Reviews {
			if rv.Passed {
				preserved[rv.Filepath] = rv
			} else {
				unresolved = append(unresolved, rv.Filepath)
			}
		}
	}

	if next.CapReached() {
		for _, step := range tp.Steps {
			if rv, ok := preserved[step.Filepath]; ok {
				next = next.With(rv)
			}
		}
		next.AllPassed = true
		next.UnresolvedFiles = unresolved
		log.Warn("review iteration cap reached, accepting remaining files", zap.Strings("unresolved", unresolved))
		return state.Update{
			Phase:       state.Some(state.PhaseReviewing),
			Status:      state.Some(state.StatusReviewMaxIterations),
			ReviewState: state.Some(next),
			Log:         []state.LogEntry{r.Entry("Iteration cap reached; %d files accepted with known issues", len(unresolved))},
		}, nil
	}

	allPassed := true
	for _, step := range tp.Steps {
		if rv, ok := preserved[step.Filepath]; ok {
			next = next.With(rv)
			continue
		}
		if _, seen := next.Lookup(step.Filepath); seen {
			continue
		}
		rv := r.reviewFile(ctx, step)
		next = next.With(rv)
		if rv.Passed {
			deps.Metrics.File(StageReviewer, "passed")
			log.Info("review passed", zap.String("file", rv.Filepath), zap.Int("quality", rv.OverallQuality))
		} else {
			allPassed = false
			deps.Metrics.File(StageReviewer, "failed")
			log.Info("review failed", zap.String("file", rv.Filepath), zap.Int("issues", len(rv.Issues)))
		}
	}
	next.AllPassed = allPassed

	passed, failed := len(next.PassedFiles()), len(next.FailedFiles())
	log.Info("review complete", zap.Int("passed", passed), zap.Int("failed", failed), zap.Int("preserved", len(preserved)))

	return state.Update{
		Phase:       state.Some(state.PhaseReviewing),
		Status:      state.Some(state.StatusReviewed),
		ReviewState: state.Some(next),
		Log:         []state.LogEntry{r.Entry("Iteration %d: %d passed, %d failed", next.Iteration, passed, failed)},
	}, nil
}

// taskPlan prefers the plan the coder worked from.
func (r *Reviewer) taskPlan(s state.State) (state.TaskPlan, bool) {
	if cs, ok := s.CoderState.Get(); ok {
		return cs.TaskPlan, true
	}
	return s.TaskPlan.Get()
}

// reviewFile never fails: errors and panics yield a passing review so one
// bad file cannot stall the loop.
func (r *Reviewer) reviewFile(ctx context.Context, step state.ImplementationTask) (review state.CodeReview) {
	path := step.Filepath
	defer func() {
		if p := recover(); p != nil {
			review = reviewError(path, fmt.Errorf("panic: %v", p))
		}
	}()

	content, found, err := r.Deps().FS.Read(path)
	if err != nil || !found || len(strings.TrimSpace(content)) < minReviewableChars {
		return missingFileReview(path)
	}

	m, err := r.Model(ctx, llm.RoleReview)
	if err != nil {
		return reviewError(path, err)
	}

	data := map[string]string{
		"Path":     path,
		"Task":     step.TaskDescription,
		"Content":  content,
		"Ext":      fileExt(path),
		"ExtUpper": strings.ToUpper(fileExt(path)),
	}
	prompt, err := render("reviewer", config.PromptReviewer, data)
	if err != nil {
		return reviewError(path, err)
	}

	rv, tier, err := structured(ctx, m, prompt, codeReviewSchema, recovery.ReviewFields(path))
	if err == nil {
		r.Deps().Metrics.Tier(StageReviewer, tier)
		return rv.Normalize()
	}
	r.Logger().Debug("structured review failed, asking for a verdict", zap.String("file", path), zap.Error(err))

	prompt, err = render("reviewer-verdict", config.PromptReviewerVerdict, data)
	if err != nil {
		return reviewError(path, err)
	}
	text, err := llm.Generate(ctx, m, prompt)
	if err != nil {
		return reviewError(path, err)
	}
	r.Deps().Metrics.Tier(StageReviewer, tierVerdict)
	return ParseVerdict(path, text).Normalize()
}

func missingFileReview(path string) state.CodeReview {
	return state.CodeReview{
		Filepath: path,
		Issues: []state.CodeIssue{{
			IssueType:   "missing",
			Description: "File does not exist or is empty",
			Suggestion:  "Ensure the file is created with proper content",
			Severity:    state.SeverityCritical,
		}},
		Passed:         false,
		OverallQuality: 0,
		Summary:        "File missing or empty",
	}
}

func reviewError(path string, err error) state.CodeReview {
	return state.CodeReview{
		Filepath:       path,
		Passed:         true,
		OverallQuality: 6,
		Summary:        "Review error: " + err.Error(),
	}
}

var (
	boldRegex       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	tableRowRegex   = regexp.MustCompile(`\|[^\n]+\|`)
	bulletRegex     = regexp.MustCompile(`(?m)^\s*[-#]+\s*`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

var issueKeywords = []string{
	"issue", "error", "missing", "incorrect", "should",
	"need", "fix", "add", "remove", "change",
}

// cleanVerdict strips markdown emphasis, tables, bullets and headings.
func cleanVerdict(text string) string {
	text = boldRegex.ReplaceAllString(text, "$1")
	text = tableRowRegex.ReplaceAllString(text, "")
	text = bulletRegex.ReplaceAllString(text, "")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// verdictIssues picks lines that read like a problem statement.
func verdictIssues(text string) []string {
	var out []string
	for _, line := range strings.Split(cleanVerdict(text), "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 15 || len(line) >= 300 {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "PASS") || strings.HasPrefix(upper, "FAIL") {
			continue
		}
		if strings.HasPrefix(line, "Result:") || strings.HasPrefix(line, "Issues") {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range issueKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, line)
				break
			}
		}
	}
	return out
}

// ParseVerdict reads a PASS/FAIL text review. The first non-blank line
// decides the verdict; failing reviews carry at most two issues.
func ParseVerdict(path, text string) state.CodeReview {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	first := ""
	firstIdx := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = strings.ToUpper(strings.TrimSpace(l))
			firstIdx = i
			break
		}
	}
	passed := first == "PASS" || (strings.HasPrefix(first, "PASS") && !strings.Contains(first, "FAIL"))

	review := state.CodeReview{Filepath: path, Passed: passed, OverallQuality: 7, Summary: "PASS"}
	if passed {
		return review
	}
	review.OverallQuality = 5
	review.Summary = "FAIL"

	if found := verdictIssues(text); len(found) > 0 {
		if len(found) > 2 {
			found = found[:2]
		}
		for _, desc := range found {
			if len(desc) > 200 {
				desc = desc[:200]
			}
			review.Issues = append(review.Issues, state.CodeIssue{
				IssueType:   "quality",
				Description: desc,
				Suggestion:  "Fix the identified issue",
				Severity:    state.SeverityMedium,
			})
		}
		return review
	}

	desc := fmt.Sprintf("Code review failed for %s", path)
	if firstIdx >= 0 && firstIdx+1 < len(lines) {
		second := cleanVerdict(strings.TrimSpace(lines[firstIdx+1]))
		if len(second) > 10 && len(second) < 200 {
			desc = second
		}
	}
	review.Issues = []state.CodeIssue{{
		IssueType:   "quality",
		Description: desc,
		Suggestion:  "Review and fix the code",
		Severity:    state.SeverityMedium,
	}}
	return review
}
