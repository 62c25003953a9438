package impl

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// Reasons recorded for rejected fixes.
const (
	FixReasonUnreadable = "Cannot read file"
	FixReasonTooShort   = "Fix produced empty or too short content"
	FixReasonLossy      = "Fix too short, possible content loss"
)

const (
	minFixChars = 10
	// minFixRatio is the smallest fixed/original length ratio accepted.
	minFixRatio = 0.3
)

// nodePatterns flag server-side JavaScript in browser code when no policy
// engine is configured.
var nodePatterns = []string{"require(", "module.exports", "fs.", "process."}

// Fixer rewrites files whose review failed.
type Fixer struct {
	core.Base
}

// NewFixer creates the fixer stage.
func NewFixer(deps core.Deps) *Fixer {
	return &Fixer{Base: core.NewBase(StageFixer, "Rewrites files that failed review", deps)}
}

// Run implements core.Stage. The review state is left untouched; the next
// review decides whether a fix worked.
func (f *Fixer) Run(ctx context.Context, s state.State) (state.Update, error) {
	log := f.Logger()
	report := state.FixReport{Fixed: []string{}, Failed: []state.FixFailure{}}

	rs, ok := s.ReviewState.Get()
	if !ok {
		log.Warn("no review state, skipping fixes")
		return f.done(report, "No review state; nothing to fix"), nil
	}

	var candidates []state.CodeReview
	for _, rv := range rs.Reviews {
		switch {
		case rv.Passed:
		case len(rv.Issues) == 0:
			report.Promoted = append(report.Promoted, rv.Filepath)
		default:
			candidates = append(candidates, rv)
		}
	}
	if len(candidates) == 0 {
		log.Info("no files with actionable issues")
		return f.done(report, "No files with actionable issues"), nil
	}

	for _, rv := range candidates {
		flog := log.With(zap.String("file", rv.Filepath), zap.Int("issues", len(rv.Issues)))
		reason, err := f.fixFile(ctx, rv, flog)
		switch {
		case err != nil:
			reason = fmt.Sprintf("Exception: %v", err)
			fallthrough
		case reason != "":
			report.Failed = append(report.Failed, state.FixFailure{Path: rv.Filepath, Reason: reason})
			f.Deps().Metrics.File(StageFixer, "rejected")
			flog.Warn("fix not applied", zap.String("reason", reason))
		default:
			report.Fixed = append(report.Fixed, rv.Filepath)
			f.Deps().Metrics.File(StageFixer, "fixed")
			flog.Info("fix applied")
		}
	}

	return f.done(report, fmt.Sprintf("Fixed %d/%d files", len(report.Fixed), len(candidates))), nil
}

func (f *Fixer) done(report state.FixReport, msg string) state.Update {
	return state.Update{
		Phase:     state.Some(state.PhaseFixing),
		Status:    state.Some(state.StatusFixed),
		FixReport: state.Some(report),
		Log:       []state.LogEntry{f.Entry("%s", msg)},
	}
}

// fixFile returns a non-empty reason when the fix was rejected, and an error
// when something failed outright.
func (f *Fixer) fixFile(ctx context.Context, rv state.CodeReview, log *zap.Logger) (reason string, err error) {
	err = core.Safely(func() error {
		reason, err = f.attempt(ctx, rv, log)
		return err
	})
	return reason, err
}

func (f *Fixer) attempt(ctx context.Context, rv state.CodeReview, log *zap.Logger) (string, error) {
	fs := f.Deps().FS
	original, found, err := fs.Read(rv.Filepath)
	if err != nil || !found || strings.TrimSpace(original) == "" {
		return FixReasonUnreadable, nil
	}

	ext := fileExt(rv.Filepath)
	prompt, err := render("fixer", config.PromptFixer, map[string]any{
		"Path":     rv.Filepath,
		"Content":  original,
		"Issues":   rv.Issues,
		"Ext":      ext,
		"ExtUpper": strings.ToUpper(ext),
	})
	if err != nil {
		return "", err
	}
	m, err := f.Model(ctx, llm.RoleFixer)
	if err != nil {
		return "", err
	}
	text, err := llm.Generate(ctx, m, prompt)
	if err != nil {
		return "", fmt.Errorf("generate fix: %w", err)
	}

	fixed := recovery.CodeBody(text, ext)
	if reason := CheckFix(original, fixed); reason != "" {
		return reason, nil
	}
	if ext == "js" {
		for _, w := range f.nodeWarnings(ctx, rv.Filepath, fixed) {
			log.Warn("fix contains Node.js pattern", zap.String("warning", w))
		}
	}
	if err := fs.Write(ctx, rv.Filepath, fixed); err != nil {
		return fmt.Sprintf("Write failed: %v", err), nil
	}
	log.Debug("fix written", zap.Int("original_chars", len(original)), zap.Int("fixed_chars", len(fixed)))
	return "", nil
}

// CheckFix returns why fixed must not replace original, or "" when it may.
func CheckFix(original, fixed string) string {
	if len(strings.TrimSpace(fixed)) < minFixChars {
		return FixReasonTooShort
	}
	if float64(len(fixed)) < float64(len(original))*minFixRatio {
		return FixReasonLossy
	}
	return ""
}

func (f *Fixer) nodeWarnings(ctx context.Context, path, content string) []string {
	if engine := f.Deps().Policy; engine != nil {
		d, err := engine.CheckWrite(ctx, path, content)
		if err == nil {
			return d.Warnings
		}
		f.Logger().Debug("policy check failed", zap.Error(err))
	}
	var out []string
	for _, p := range nodePatterns {
		if strings.Contains(content, p) {
			out = append(out, fmt.Sprintf("%s contains Node.js pattern %q", path, p))
		}
	}
	return out
}
