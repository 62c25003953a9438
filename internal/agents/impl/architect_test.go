package impl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm/llmtest"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

func TestArchitect_NoPlan(t *testing.T) {
	env := newEnv(t, llmtest.New(llmtest.Text("unused")))

	u, err := NewArchitect(env.deps).Run(context.Background(), baseState())
	require.NoError(t, err)

	next := baseState().Apply(u)
	assert.Equal(t, state.PhaseFailed, next.Phase)
	assert.Equal(t, state.StatusFailed, next.Status)
	assert.Equal(t, []string{ErrMsgNoPlan}, next.Errors)
}

func TestArchitect_StructuredIsSorted(t *testing.T) {
	reply := `{"implementation_steps":[
		{"filepath":"script.js","task_description":"js","priority":2},
		{"filepath":"index.html","task_description":"html","priority":0},
		{"filepath":"style.css","task_description":"css","priority":1}]}`
	env := newEnv(t, llmtest.New(llmtest.ToolCall(recovery.TagTaskPlan, reply)))
	s := baseState()
	s.Plan = state.Some(samplePlan())

	u, err := NewArchitect(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	tp, ok := u.TaskPlan.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"index.html", "style.css", "script.js"}, tp.Filepaths())
	assert.True(t, tp.IsSorted())
	assert.Equal(t, "Todo", tp.Plan.Name)
	assert.Equal(t, state.StatusArchitected, u.Status.OrElse(""))
}

func TestArchitect_RecoveredFromFailedGeneration(t *testing.T) {
	failure := errors.New(`failed_generation: <function=TaskPlan>{"implementation_steps": [` +
		`{"filepath": "b.css", "task_description": "Style <\/div>", "priority": 1},` +
		`{"filepath": "a.html", "task_description": "Markup", "priority": 0}]}</function>`)
	env := newEnv(t, llmtest.New(llmtest.Fail(failure)))
	s := baseState()
	s.Plan = state.Some(samplePlan())

	u, err := NewArchitect(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	tp, ok := u.TaskPlan.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"a.html", "b.css"}, tp.Filepaths())
}

func TestArchitect_FallsBackToDeterministicPlan(t *testing.T) {
	tests := []struct {
		name  string
		reply llmtest.Responder
	}{
		{"transport error", llmtest.Fail(errors.New("connection reset by peer"))},
		{"zero steps", llmtest.ToolCall(recovery.TagTaskPlan, `{"implementation_steps":[]}`)},
		{"unparseable text", llmtest.Text("Here are the steps you asked for.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, llmtest.New(tt.reply))
			s := baseState()
			s.Plan = state.Some(samplePlan())

			u, err := NewArchitect(env.deps).Run(context.Background(), s)
			require.NoError(t, err)

			tp, ok := u.TaskPlan.Get()
			require.True(t, ok)
			assert.Equal(t, []string{"index.html", "style.css", "script.js"}, tp.Filepaths())
			assert.Equal(t, state.StatusArchitected, u.Status.OrElse(""))
		})
	}
}

func TestFallbackTaskPlan(t *testing.T) {
	plan := state.Plan{
		Name:      "Mixed",
		TechStack: "Web",
		Features:  []string{"One", "Two"},
		Files: []state.File{
			{Path: "script.js", Purpose: "Behavior"},
			{Path: "notes.txt", Purpose: "Notes"},
			{Path: "index.html", Purpose: "Markup"},
			{Path: "README.md", Purpose: "Docs"},
			{Path: "data.json", Purpose: "Seed data"},
			{Path: "style.css", Purpose: "Styles"},
		},
	}

	tp, err := FallbackTaskPlan(plan)
	require.NoError(t, err)

	// json and html tie at 0 and keep declaration order; notes.txt takes its
	// index (1) as priority.
	assert.Equal(t, []string{"index.html", "data.json", "notes.txt", "style.css", "script.js", "README.md"}, tp.Filepaths())
	assert.True(t, tp.IsSorted())

	byPath := map[string]state.ImplementationTask{}
	for _, step := range tp.Steps {
		byPath[step.Filepath] = step
	}
	assert.Empty(t, byPath["script.js"].Dependencies)
	assert.Equal(t, []string{"script.js", "notes.txt"}, byPath["index.html"].Dependencies)
	assert.Equal(t, 1, byPath["notes.txt"].Priority)

	desc := byPath["index.html"].TaskDescription
	assert.Contains(t, desc, "Create the file index.html for the Mixed project.")
	assert.Contains(t, desc, "Purpose: Markup")
	assert.Contains(t, desc, "Tech Stack: Web")
	assert.Contains(t, desc, "- One\n- Two\n")
	assert.Contains(t, desc, "Create a complete, working implementation.")
}
