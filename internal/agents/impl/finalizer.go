package impl

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// ReadmePath is where the finalizer writes project documentation.
const ReadmePath = "README.md"

// maxSummaryFiles caps the files listed in the final summary.
const maxSummaryFiles = 15

var markdownFenceRegex = regexp.MustCompile("(?s)```(?:markdown|md)?\n(.*?)```")

// Finalizer writes the README and the run summary.
type Finalizer struct {
	core.Base
}

// NewFinalizer creates the finalizer stage.
func NewFinalizer(deps core.Deps) *Finalizer {
	return &Finalizer{Base: core.NewBase(StageFinalizer, "Writes the README and the final summary", deps)}
}

// Run implements core.Stage.
func (f *Finalizer) Run(ctx context.Context, s state.State) (state.Update, error) {
	deps := f.Deps()
	log := f.Logger()
	now := deps.Now()
	root := deps.FS.Root()

	done := state.Update{
		Phase:        state.Some(state.PhaseComplete),
		Status:       state.Some(state.StatusDone),
		ProjectPath:  state.Some(root),
		FinalSummary: state.Some("Project completed"),
		CompletedAt:  state.Some(now),
		Log:          []state.LogEntry{f.Entry("Project completed")},
	}
	plan, ok := s.Plan.Get()
	if !ok {
		log.Warn("no plan, finishing without README")
		return done, nil
	}

	files, err := deps.FS.List(".")
	if err != nil {
		log.Warn("list project files", zap.Error(err))
	}

	readme, source := f.readme(ctx, plan, files)
	if err := deps.FS.Write(ctx, ReadmePath, readme); err != nil {
		log.Warn("write README", zap.Error(err))
	} else {
		log.Info("README written", zap.String("source", source))
		if !slices.Contains(files, ReadmePath) {
			files = append(files, ReadmePath)
		}
	}

	var unresolved []string
	if rs, ok := s.ReviewState.Get(); ok {
		unresolved = rs.UnresolvedFiles
	}
	summary := Summary(plan, root, files, unresolved, now)
	done.FinalSummary = state.Some(summary)
	done.Log = []state.LogEntry{f.Entry("Project %q complete with %d files", plan.Name, len(files))}
	return done, nil
}

// readme asks the model for a README and falls back to a template.
func (f *Finalizer) readme(ctx context.Context, plan state.Plan, files []string) (string, string) {
	log := f.Logger()
	data := map[string]any{
		"Name":        plan.Name,
		"Description": plan.Description,
		"TechStack":   plan.TechStack,
		"Features":    plan.Features,
		"Files":       files,
	}

	text, err := func() (string, error) {
		prompt, err := render("readme", config.PromptReadme, data)
		if err != nil {
			return "", err
		}
		m, err := f.Model(ctx, llm.RolePlanning)
		if err != nil {
			return "", err
		}
		return llm.Generate(ctx, m, prompt)
	}()
	if err == nil {
		if content := StripMarkdownFence(text); content != "" {
			return content, "model"
		}
	} else {
		log.Warn("README generation failed, using template", zap.Error(err))
	}

	content, err := render("readme-fallback", config.ReadmeFallback, data)
	if err != nil {
		return "# " + plan.Name + "\n\n" + plan.Description + "\n", "minimal"
	}
	return content, "template"
}

// StripMarkdownFence unwraps a README the model fenced as markdown.
func StripMarkdownFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if m := markdownFenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// Summary renders the closing report for a finished run.
func Summary(plan state.Plan, root string, files, unresolved []string, at time.Time) string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nPROJECT GENERATION COMPLETE\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Project: %s\nLocation: %s\nTech Stack: %s\n\n", plan.Name, root, plan.TechStack)

	b.WriteString("Features:\n")
	for _, feat := range plan.Features {
		fmt.Fprintf(&b, "  - %s\n", feat)
	}

	b.WriteString("\nFiles Created:\n")
	for i, file := range files {
		if i == maxSummaryFiles {
			fmt.Fprintf(&b, "  ... and %d more files\n", len(files)-maxSummaryFiles)
			break
		}
		fmt.Fprintf(&b, "  - %s\n", file)
	}

	if len(unresolved) > 0 {
		b.WriteString("\nAccepted with known issues:\n")
		for _, file := range unresolved {
			fmt.Fprintf(&b, "  - %s\n", file)
		}
	}

	fmt.Fprintf(&b, "\nCompleted at: %s\n\n", at.Format("2006-01-02 15:04:05"))
	switch DetectProjectType(plan.TechStack, files) {
	case ProjectWeb:
		b.WriteString("To run: Open index.html in your web browser\n")
	case ProjectPython:
		b.WriteString("To run: python main.py (see README.md)\n")
	default:
		b.WriteString("To run: see README.md\n")
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}
