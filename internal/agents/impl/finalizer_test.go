package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm/llmtest"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

func TestFinalizer_NoPlan(t *testing.T) {
	m := llmtest.New(llmtest.Text("unused"))
	env := newEnv(t, m)

	u, err := NewFinalizer(env.deps).Run(context.Background(), baseState())
	require.NoError(t, err)

	next := baseState().Apply(u)
	assert.Equal(t, state.PhaseComplete, next.Phase)
	assert.Equal(t, state.StatusDone, next.Status)
	assert.Equal(t, "Project completed", next.FinalSummary)
	assert.Equal(t, "/project", next.ProjectPath)
	completed, ok := u.CompletedAt.Get()
	require.True(t, ok)
	assert.Equal(t, fixedNow, completed)
	assert.False(t, env.fs.Exists(ReadmePath))
	assert.Empty(t, m.Calls())
}

func TestFinalizer_Readme(t *testing.T) {
	tests := []struct {
		name  string
		reply llmtest.Responder
		want  []string
	}{
		{
			name:  "model readme with fence stripped",
			reply: llmtest.Text("```markdown\n# Todo\n\nA tidy list.\n```"),
			want:  []string{"# Todo\n\nA tidy list."},
		},
		{
			name:  "template when the model fails",
			reply: llmtest.Fail(errors.New("quota exceeded")),
			want:  []string{"# Todo", "A small todo list", "Add tasks", "index.html"},
		},
		{
			name:  "template when the model returns nothing",
			reply: llmtest.Text("   "),
			want:  []string{"# Todo", "HTML, CSS, JavaScript"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, llmtest.New(tt.reply))
			env.write(t, map[string]string{
				"index.html": "<html></html>",
				"style.css":  "body {}",
			})
			s := baseState()
			s.Plan = state.Some(samplePlan())

			u, err := NewFinalizer(env.deps).Run(context.Background(), s)
			require.NoError(t, err)

			readme := env.read(t, ReadmePath)
			for _, w := range tt.want {
				assert.Contains(t, readme, w)
			}
			assert.NotContains(t, readme, "```markdown")

			summary := u.FinalSummary.OrElse("")
			assert.Contains(t, summary, "PROJECT GENERATION COMPLETE")
			assert.Contains(t, summary, "  - README.md\n")
			assert.Equal(t, state.StatusDone, u.Status.OrElse(""))
		})
	}
}

func TestFinalizer_ListsUnresolvedFiles(t *testing.T) {
	env := newEnv(t, llmtest.New(llmtest.Text("# Todo")))
	env.write(t, map[string]string{"index.html": "<html></html>"})
	s := baseState()
	s.Plan = state.Some(samplePlan())
	s.ReviewState = state.Some(state.ReviewState{Iteration: 5, MaxIterations: 5, AllPassed: true, UnresolvedFiles: []string{"script.js"}})

	u, err := NewFinalizer(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	assert.Contains(t, u.FinalSummary.OrElse(""), "Accepted with known issues:\n  - script.js\n")
}

func TestStripMarkdownFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"# Title\n\nBody", "# Title\n\nBody"},
		{"```markdown\n# Title\n```", "# Title"},
		{"```md\n# Title\n```", "# Title"},
		{"```\n# Title\n```", "# Title"},
		{"  \n```markdown\n# T\n```\n\ntrailing", "# T"},
		{"```unterminated", "```unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdownFence(tt.in))
		})
	}
}

func TestSummary(t *testing.T) {
	var files []string
	for i := range 18 {
		files = append(files, fmt.Sprintf("src/file%02d.py", i))
	}
	plan := state.Plan{Name: "Big", TechStack: "Python", Features: []string{"Compute"}}

	out := Summary(plan, "/tmp/big", files, nil, fixedNow)

	rule := strings.Repeat("=", 60)
	assert.True(t, strings.HasPrefix(out, "\n"+rule+"\nPROJECT GENERATION COMPLETE\n"+rule))
	assert.Contains(t, out, "Project: Big\nLocation: /tmp/big\nTech Stack: Python\n")
	assert.Contains(t, out, "Features:\n  - Compute\n")
	assert.Contains(t, out, "  - src/file14.py\n  ... and 3 more files\n")
	assert.NotContains(t, out, "src/file15.py")
	assert.NotContains(t, out, "Accepted with known issues")
	assert.Contains(t, out, "Completed at: 2026-03-14 09:26:53")
	assert.Contains(t, out, "To run: python main.py")
	assert.True(t, strings.HasSuffix(out, rule+"\n"))
}

func TestSummary_WebRunHint(t *testing.T) {
	out := Summary(samplePlan(), "/p", []string{"index.html"}, nil, fixedNow)
	assert.Contains(t, out, "To run: Open index.html in your web browser")
}
