package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/tools"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// ErrMsgNoTaskPlan is recorded when the coder runs without a task plan.
const ErrMsgNoTaskPlan = "No task plan available"

var errNotWritten = errors.New("target file not written")

// Coder implements one TaskPlan step per invocation.
type Coder struct {
	core.Base
}

// NewCoder creates the coder stage.
func NewCoder(deps core.Deps) *Coder {
	return &Coder{Base: core.NewBase(StageCoder, "Generates one project file per step", deps)}
}

// Run implements core.Stage. Every call that finds a pending step advances
// the step index by exactly one, recording the file as completed or failed.
func (c *Coder) Run(ctx context.Context, s state.State) (state.Update, error) {
	tp, ok := s.TaskPlan.Get()
	if !ok {
		return c.Fail(ErrMsgNoTaskPlan), nil
	}
	cs := s.CoderState.OrElse(state.NewCoderState(tp))

	task, ok := cs.Current()
	if !ok {
		return state.Update{
			Phase:      state.Some(state.PhaseCoding),
			Status:     state.Some(state.StatusCoded),
			CoderState: state.Some(cs),
		}, nil
	}

	log := c.Logger().With(
		zap.String("file", task.Filepath),
		zap.Int("step", cs.CurrentStepIdx+1),
		zap.Int("steps", len(cs.TaskPlan.Steps)))
	log.Info("coding file")

	tier, err := c.implement(ctx, task, log)
	var entry state.LogEntry
	if err == nil {
		cs = cs.Complete(task.Filepath)
		c.Deps().Metrics.File(StageCoder, "completed")
		log.Info("file completed", zap.String("tier", tier))
		entry = c.Entry("Completed %s (%s)", task.Filepath, tier)
	} else {
		cs = cs.Fail(task.Filepath)
		c.Deps().Metrics.File(StageCoder, "failed")
		log.Warn("file failed, continuing with remaining steps", zap.Error(err))
		entry = c.Entry("Failed %s: %v", task.Filepath, err)
	}

	status := state.StatusCoding
	if cs.Done() {
		status = state.StatusCoded
	}
	return state.Update{
		Phase:      state.Some(state.PhaseCoding),
		Status:     state.Some(status),
		CoderState: state.Some(cs),
		Log:        []state.LogEntry{entry},
	}, nil
}

// implement runs the tiers in order and returns the one that produced the
// file.
func (c *Coder) implement(ctx context.Context, task state.ImplementationTask, log *zap.Logger) (string, error) {
	m, err := c.Model(ctx, llm.RoleCoding)
	if err != nil {
		return "", err
	}

	var loopErr error
	err = core.Safely(func() error {
		loopErr = c.viaTools(ctx, m, task)
		return nil
	})
	if err != nil {
		loopErr = err
	}
	if loopErr == nil {
		c.Deps().Metrics.Tier(StageCoder, tierTools)
		return tierTools, nil
	}
	log.Debug("tool loop did not produce the file", zap.Error(loopErr))

	if ge, ok := llm.AsGenerationError(loopErr); ok && ge.Tag == recovery.TagWriteFile {
		err := core.Safely(func() error { return c.salvage(ctx, loopErr, task) })
		if err == nil {
			c.Deps().Metrics.Tier(StageCoder, tierSalvaged)
			return tierSalvaged, nil
		}
		log.Debug("tool call salvage failed", zap.Error(err))
	}

	err = core.Safely(func() error { return c.direct(ctx, m, task) })
	if err == nil {
		c.Deps().Metrics.Tier(StageCoder, tierDirect)
		return tierDirect, nil
	}
	return "", fmt.Errorf("all generation tiers failed: %w", err)
}

func (c *Coder) viaTools(ctx context.Context, m model.BaseChatModel, task state.ImplementationTask) error {
	deps := c.Deps()
	existing, _, err := deps.FS.Read(task.Filepath)
	if err != nil {
		existing = ""
	}
	prompt, err := render("coder-task", config.PromptCoderTask, map[string]string{
		"Path":     task.Filepath,
		"Task":     task.TaskDescription,
		"Ext":      fileExt(task.Filepath),
		"Existing": existing,
		"Context":  c.projectContext(task.Filepath),
	})
	if err != nil {
		return err
	}

	res, err := tools.RunLoop(ctx, m, tools.LoopConfig{
		System:        config.PromptCoderSystem,
		User:          prompt,
		Tools:         tools.CoderTools(deps.FS),
		MaxIterations: deps.Options.MaxToolIterations,
		Logger:        c.Logger().With(zap.String("file", task.Filepath)),
	})
	if err != nil {
		return err
	}
	if !c.rewritten(task.Filepath, existing) {
		return fmt.Errorf("%w after %d iterations (exhausted=%t)", errNotWritten, res.Iterations, res.Exhausted)
	}
	return nil
}

// salvage executes a write_file call that the provider failed to parse.
func (c *Coder) salvage(ctx context.Context, failure error, task state.ImplementationTask) error {
	call, ok := recovery.ExtractToolCall(failure, tools.NameWriteFile)
	if !ok {
		return errors.New("no write_file call in failed generation")
	}
	path, content, ok := call.WriteArgs()
	if !ok {
		return errors.New("salvaged write_file call has no path or content")
	}
	before, _, err := c.Deps().FS.Read(task.Filepath)
	if err != nil {
		before = ""
	}
	if err := c.Deps().FS.Write(ctx, path, content); err != nil {
		return fmt.Errorf("write salvaged %s: %w", path, err)
	}
	c.Logger().Info("wrote file from salvaged tool call", zap.String("path", path))
	if !c.rewritten(task.Filepath, before) {
		return fmt.Errorf("%w: salvaged call targeted %s", errNotWritten, path)
	}
	return nil
}

// direct asks for the file body without tools.
func (c *Coder) direct(ctx context.Context, m model.BaseChatModel, task state.ImplementationTask) error {
	prompt, err := render("coder-direct", config.PromptCoderDirect, map[string]string{
		"Path": task.Filepath,
		"Task": task.TaskDescription,
	})
	if err != nil {
		return err
	}
	text, err := llm.Generate(ctx, m, prompt)
	if err != nil {
		return fmt.Errorf("direct generation: %w", err)
	}
	body := recovery.CodeBody(text, fileExt(task.Filepath))
	if strings.TrimSpace(body) == "" {
		return errors.New("direct generation returned no code")
	}
	return c.Deps().FS.Write(ctx, task.Filepath, body)
}

// rewritten reports whether path now holds non-blank content other than
// before. A file left as it was does not count as implemented.
func (c *Coder) rewritten(path, before string) bool {
	content, found, err := c.Deps().FS.Read(path)
	return err == nil && found && strings.TrimSpace(content) != "" && content != before
}

func (c *Coder) projectContext(exclude string) string {
	opts := c.Deps().Options
	summary := c.Deps().FS.ContextSummary(opts.ContextFiles, opts.ContextChars, exclude)
	c.Logger().Debug("project context", zap.String("file", exclude), zap.Int("approx_tokens", llm.EstimateTokens(summary)))
	return summary
}
