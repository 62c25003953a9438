/*
Package core provides the foundational types shared by every pipeline stage.
*/
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/metrics"
	"github.com/Saurav134/Agentic-Project-Builder/internal/policy"
	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
	"github.com/Saurav134/Agentic-Project-Builder/internal/shell"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

// Stage is one step of the builder pipeline. Run reads the accumulated state
// and returns the partial update to merge; it never mutates its input.
// Missing prerequisites are reported in the update, not as an error.
type Stage interface {
	Name() string
	Description() string
	Run(ctx context.Context, s state.State) (state.Update, error)
}

// Options are the tunables stages read.
type Options struct {
	MaxReviewIterations int
	ContextFiles        int
	ContextChars        int
	MaxToolIterations   int
	VersionTimeout      time.Duration
	RunTimeout          time.Duration
}

// DefaultOptions returns the stock tunables.
func DefaultOptions() Options {
	return Options{
		MaxReviewIterations: 5,
		ContextFiles:        5,
		ContextChars:        300,
		MaxToolIterations:   12,
		VersionTimeout:      10 * time.Second,
		RunTimeout:          60 * time.Second,
	}
}

// Deps are the collaborators handed to every stage.
type Deps struct {
	Models  llm.ModelSource
	FS      *sandbox.FS
	Runner  shell.Runner
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Policy is optional. When set, stages consult it for advisory warnings.
	Policy  *policy.Engine
	Options Options
	Now     func() time.Time
}

// Base provides the shared plumbing for all stages.
type Base struct {
	name        string
	description string
	deps        Deps
}

// NewBase creates a Base with the given identity and dependencies.
func NewBase(name, description string, deps Deps) Base {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Options == (Options{}) {
		deps.Options = DefaultOptions()
	}
	return Base{name: name, description: description, deps: deps}
}

// Name returns the stage identifier.
func (b *Base) Name() string { return b.name }

// Description returns the stage description.
func (b *Base) Description() string { return b.description }

// Deps returns the stage dependencies.
func (b *Base) Deps() Deps { return b.deps }

// Logger returns a logger tagged with the stage name.
func (b *Base) Logger() *zap.Logger {
	return b.deps.Logger.With(zap.String("stage", b.name))
}

// Model returns the chat model for role.
func (b *Base) Model(ctx context.Context, role llm.Role) (model.BaseChatModel, error) {
	if b.deps.Models == nil {
		return nil, fmt.Errorf("%s: no model source configured", b.name)
	}
	return b.deps.Models.Model(ctx, role)
}

// Entry builds an execution log line stamped with the stage clock.
func (b *Base) Entry(format string, args ...any) state.LogEntry {
	return state.LogEntry{Stage: b.name, Message: fmt.Sprintf(format, args...), Time: b.deps.Now()}
}

// Fail builds the update for a missing prerequisite and logs it.
func (b *Base) Fail(msg string) state.Update {
	b.Logger().Error(msg)
	u := state.Failed(msg)
	u.Log = []state.LogEntry{b.Entry("%s", msg)}
	return u
}

// Safely runs fn, converting a panic into an error.
func Safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
