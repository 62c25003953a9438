package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

var testStages = []pipeline.StageInfo{
	{Name: "planner", Title: "Planner"},
	{Name: "coder", Title: "Coder"},
	{Name: "reviewer", Title: "Reviewer"},
}

func TestProgressModel_Apply(t *testing.T) {
	m := NewProgressModel(testStages, nil, nil)
	events := []pipeline.Event{
		{Type: pipeline.EventStarted},
		{Type: pipeline.EventStageStart, Stage: "planner"},
		{Type: pipeline.EventStageEnd, Stage: "planner", Duration: time.Second},
		{Type: pipeline.EventStageStart, Stage: "coder"},
		{Type: pipeline.EventStageEnd, Stage: "coder", Duration: time.Second},
		{Type: pipeline.EventStageStart, Stage: "coder"},
		{Type: pipeline.EventStageEnd, Stage: "coder", Duration: 2 * time.Second},
		{Type: pipeline.EventStageStart, Stage: "unknown"},
		{Type: pipeline.EventStageStart, Stage: "reviewer"},
		{Type: pipeline.EventError, Message: "step limit exceeded"},
	}
	for _, e := range events {
		m.Apply(e)
	}

	rows := m.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, StageRow{Name: "planner", Title: "Planner", Status: StageDone, Visits: 1, Elapsed: time.Second}, rows[0])
	assert.Equal(t, StageRow{Name: "coder", Title: "Coder", Status: StageDone, Visits: 2, Elapsed: 3 * time.Second}, rows[1])
	assert.Equal(t, StageError, rows[2].Status)
	assert.Equal(t, "step limit exceeded", rows[2].Message)

	view := m.View()
	assert.Contains(t, view, "Building project")
	assert.Contains(t, view, "Coder")
	assert.Contains(t, view, "x2")
	assert.Contains(t, view, "step limit exceeded")
}

func TestProgressModel_StageError(t *testing.T) {
	m := NewProgressModel(testStages, nil, nil)
	m.Apply(pipeline.Event{Type: pipeline.EventStageStart, Stage: "planner"})
	m.Apply(pipeline.Event{Type: pipeline.EventStageEnd, Stage: "planner", Message: "node planner: boom"})

	row := m.Rows()[0]
	assert.Equal(t, StageError, row.Status)
	assert.Equal(t, "node planner: boom", row.Message)
}

func TestProgressModel_DrainsEventsBeforeOutcome(t *testing.T) {
	events := make(chan pipeline.Event, 2)
	done := make(chan RunDoneMsg, 1)
	events <- pipeline.Event{Type: pipeline.EventStageStart, Stage: "planner"}
	events <- pipeline.Event{Type: pipeline.EventStageEnd, Stage: "planner"}
	close(events)
	done <- RunDoneMsg{Result: pipeline.Result{Status: state.StatusDone}}

	var model tea.Model = NewProgressModel(testStages, events, done)
	cmd := model.(ProgressModel).listen()
	for range 3 {
		msg := cmd()
		model, cmd = model.Update(msg)
	}

	m := model.(ProgressModel)
	require.NotNil(t, m.Outcome)
	assert.Equal(t, state.StatusDone, m.Outcome.Result.Status)
	assert.Equal(t, StageDone, m.Rows()[0].Status)
	assert.False(t, m.Interrupted)
}

func TestProgressModel_Interrupt(t *testing.T) {
	m := NewProgressModel(testStages, nil, nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, next.(ProgressModel).Interrupted)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		name string
		res  pipeline.Result
		want []string
	}{
		{
			name: "done",
			res:  pipeline.Result{RunID: "r1", ProjectPath: "/out", Status: state.StatusDone, Files: []string{"index.html"}},
			want: []string{"Project generated", "r1", "/out", "DONE", "Files (1)", "index.html"},
		},
		{
			name: "accepted with issues",
			res:  pipeline.Result{Status: state.StatusDone, UnresolvedFiles: []string{"script.js"}},
			want: []string{"Accepted with known issues", "script.js"},
		},
		{
			name: "failed",
			res:  pipeline.Result{Status: state.StatusFailed, Errors: []string{"No user prompt provided"}},
			want: []string{"Generation failed", "No user prompt provided"},
		},
		{
			name: "stopped early",
			res:  pipeline.Result{Status: state.StatusCoding},
			want: []string{"Generation stopped", "coding"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderResult(tt.res)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRenderResult_CapsFileList(t *testing.T) {
	var files []string
	for i := range 20 {
		files = append(files, string(rune('a'+i))+".txt")
	}
	out := RenderResult(pipeline.Result{Status: state.StatusDone, Files: files})
	assert.Contains(t, out, "... and 5 more")
	assert.NotContains(t, out, "p.txt")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdefgh", 5))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
