package impl

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm/llmtest"
	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
	"github.com/Saurav134/Agentic-Project-Builder/internal/shell"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type testEnv struct {
	deps core.Deps
	fs   *sandbox.FS
	logs *observer.ObservedLogs
}

// newEnv wires deps around an in-memory project and a single model used
// for every role.
func newEnv(t *testing.T, m model.BaseChatModel) *testEnv {
	t.Helper()
	fs, err := sandbox.NewWithFs(afero.NewMemMapFs(), "/project")
	require.NoError(t, err)

	obsCore, logs := observer.New(zap.DebugLevel)
	env := &testEnv{fs: fs, logs: logs}
	env.deps = depsFor(fs, zap.New(obsCore), m)
	return env
}

func depsFor(fs *sandbox.FS, logger *zap.Logger, m model.BaseChatModel) core.Deps {
	d := core.Deps{
		FS:      fs,
		Logger:  logger,
		Options: core.DefaultOptions(),
		Now:     func() time.Time { return fixedNow },
	}
	if m != nil {
		d.Models = llmtest.Source{llm.RoleDefault: m}
	}
	return d
}

func (e *testEnv) write(t *testing.T, files map[string]string) {
	t.Helper()
	for p, c := range files {
		require.NoError(t, e.fs.Write(context.Background(), p, c))
	}
}

func (e *testEnv) read(t *testing.T, p string) string {
	t.Helper()
	content, _, err := e.fs.Read(p)
	require.NoError(t, err)
	return content
}

func taskPlan(paths ...string) state.TaskPlan {
	tp := state.TaskPlan{Plan: samplePlan()}
	for i, p := range paths {
		tp.Steps = append(tp.Steps, state.ImplementationTask{
			Filepath:        p,
			TaskDescription: "Implement " + p,
			Priority:        i,
		})
	}
	return tp
}

func samplePlan() state.Plan {
	return state.Plan{
		Name:        "Todo",
		Description: "A small todo list",
		TechStack:   "HTML, CSS, JavaScript",
		Features:    []string{"Add tasks", "Delete tasks"},
		Files: []state.File{
			{Path: "index.html", Purpose: "Markup"},
			{Path: "style.css", Purpose: "Styles"},
			{Path: "script.js", Purpose: "Behavior"},
		},
	}
}

func withPlan(s state.State, tp state.TaskPlan) state.State {
	s.Plan = state.Some(tp.Plan)
	s.TaskPlan = state.Some(tp)
	return s
}

func baseState() state.State {
	return state.New("Build a todo app", "/project", fixedNow)
}

// fakeRunner answers commands by their joined text.
type fakeRunner struct {
	mu      sync.Mutex
	replies map[string]fakeReply
	calls   []string
}

type fakeReply struct {
	res shell.Result
	err error
}

func (f *fakeRunner) Run(_ context.Context, command []string, _ time.Duration) (shell.Result, error) {
	key := strings.Join(command, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if r, ok := f.replies[key]; ok {
		return r.res, r.err
	}
	return shell.Result{}, shell.ErrTimeout
}
