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

const passingReview = `{"passed":true,"overall_quality":8,"summary":"Looks good","issues":[]}`

func TestReviewer_NoInput(t *testing.T) {
	env := newEnv(t, llmtest.New(llmtest.Text("unused")))

	u, err := NewReviewer(env.deps).Run(context.Background(), baseState())
	require.NoError(t, err)

	next := baseState().Apply(u)
	assert.Equal(t, state.StatusFailed, next.Status)
	assert.Equal(t, []string{ErrMsgNoReviewInput}, next.Errors)
}

func TestReviewer_FirstPass(t *testing.T) {
	m := llmtest.New(llmtest.Router(
		llmtest.ToolCall(recovery.TagCodeReview, passingReview),
		llmtest.Route{
			Contains: "function add() {}",
			Reply: llmtest.ToolCall(recovery.TagCodeReview, `{"passed":false,"overall_quality":4,"summary":"Buggy",
				"issues":[{"issue_type":"bug","description":"Handler never attached","suggestion":"Attach it","severity":"major"}]}`),
		},
	))
	env := newEnv(t, m)
	env.write(t, map[string]string{
		"index.html": "<html><body>todo</body></html>",
		"script.js":  "function add() {}",
	})
	tp := taskPlan("index.html", "style.css", "script.js")
	s := withPlan(baseState(), tp)
	s.CoderState = state.Some(state.NewCoderState(tp))

	u, err := NewReviewer(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	rs, ok := u.ReviewState.Get()
	require.True(t, ok)
	require.NoError(t, rs.Check())
	assert.Equal(t, 0, rs.Iteration)
	assert.Equal(t, 5, rs.MaxIterations)
	assert.False(t, rs.AllPassed)
	assert.Equal(t, state.StatusReviewed, u.Status.OrElse(""))
	assert.Equal(t, []string{"index.html"}, rs.PassedFiles())
	assert.Equal(t, []string{"style.css", "script.js"}, rs.FailedFiles())

	missing, _ := rs.Lookup("style.css")
	assert.Equal(t, 0, missing.OverallQuality)
	assert.Equal(t, "File missing or empty", missing.Summary)
	require.Len(t, missing.Issues, 1)
	assert.Equal(t, state.SeverityCritical, missing.Issues[0].Severity)
	assert.Equal(t, "missing", missing.Issues[0].IssueType)

	buggy, _ := rs.Lookup("script.js")
	require.Len(t, buggy.Issues, 1)
	assert.Equal(t, state.SeverityHigh, buggy.Issues[0].Severity)

	// the missing file is never sent to the model
	assert.Len(t, m.Calls(), 2)
}

func TestReviewer_PreservesPassedReviews(t *testing.T) {
	m := llmtest.New(llmtest.ToolCall(recovery.TagCodeReview, passingReview))
	env := newEnv(t, m)
	env.write(t, map[string]string{
		"index.html": "<html><body>todo</body></html>",
		"style.css":  "body { margin: 0; }",
	})
	tp := taskPlan("index.html", "style.css")
	s := withPlan(baseState(), tp)
	s.ReviewState = state.Some(state.ReviewState{
		Iteration:     0,
		MaxIterations: 5,
		Reviews: []state.CodeReview{
			{Filepath: "index.html", Passed: true, OverallQuality: 9, Summary: "Great"},
			missingFileReview("style.css"),
		},
	})

	u, err := NewReviewer(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	rs, _ := u.ReviewState.Get()
	assert.Equal(t, 1, rs.Iteration)
	assert.True(t, rs.AllPassed)

	kept, _ := rs.Lookup("index.html")
	assert.Equal(t, 9, kept.OverallQuality)
	assert.Equal(t, "Great", kept.Summary)

	redone, _ := rs.Lookup("style.css")
	assert.True(t, redone.Passed)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt(), "style.css")
}

func TestReviewer_IterationCap(t *testing.T) {
	m := llmtest.New(llmtest.ToolCall(recovery.TagCodeReview, passingReview))
	env := newEnv(t, m)
	tp := taskPlan("index.html", "style.css", "script.js")
	s := withPlan(baseState(), tp)
	s.ReviewState = state.Some(state.ReviewState{
		Iteration:     4,
		MaxIterations: 5,
		Reviews: []state.CodeReview{
			missingFileReview("script.js"),
			{Filepath: "index.html", Passed: true, OverallQuality: 8},
			missingFileReview("style.css"),
		},
	})

	u, err := NewReviewer(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	rs, _ := u.ReviewState.Get()
	assert.Equal(t, state.StatusReviewMaxIterations, u.Status.OrElse(""))
	assert.Equal(t, 5, rs.Iteration)
	assert.True(t, rs.AllPassed)
	assert.Equal(t, []string{"index.html"}, rs.PassedFiles())
	assert.Empty(t, rs.FailedFiles())
	assert.Equal(t, []string{"script.js", "style.css"}, rs.UnresolvedFiles)
	assert.Empty(t, m.Calls())
}

func TestReviewer_VerdictFallback(t *testing.T) {
	m := llmtest.Script(
		llmtest.Text("I think this file is mostly fine overall."),
		llmtest.Text("FAIL\n- Missing validation when the input is empty\n"),
	)
	env := newEnv(t, m)
	env.write(t, map[string]string{"script.js": "function add(x) { list.push(x) }"})
	s := withPlan(baseState(), taskPlan("script.js"))

	u, err := NewReviewer(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	rs, _ := u.ReviewState.Get()
	rv, ok := rs.Lookup("script.js")
	require.True(t, ok)
	assert.False(t, rv.Passed)
	assert.Equal(t, 5, rv.OverallQuality)
	require.Len(t, rv.Issues, 1)
	assert.Equal(t, "Missing validation when the input is empty", rv.Issues[0].Description)

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].HasTool(recovery.TagCodeReview))
	assert.False(t, calls[1].HasTool(recovery.TagCodeReview))
}

func TestReviewer_StrayJSONIsNotAVerdict(t *testing.T) {
	groqErr := errors.New(`error, status code: 400, status: 400 Bad Request, message: Failed to call a function., ` +
		`body: {"error":{"message":"Failed to call a function. Please adjust your prompt. See 'failed_generation' for more details.",` +
		`"type":"invalid_request_error","code":"tool_use_failed","failed_generation":""}}`)

	tests := []struct {
		name  string
		first llmtest.Responder
	}{
		{
			name:  "text reply quoting an object",
			first: llmtest.Text(`FAIL. The config object {"debug": true} is shipped to users and should be removed.`),
		},
		{
			name:  "provider error without a generation",
			first: llmtest.Fail(groqErr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := llmtest.Script(tt.first, llmtest.Text("FAIL\n- Debug flag is enabled in production\n"))
			env := newEnv(t, m)
			env.write(t, map[string]string{"script.js": "const config = { debug: true };"})
			s := withPlan(baseState(), taskPlan("script.js"))

			u, err := NewReviewer(env.deps).Run(context.Background(), s)
			require.NoError(t, err)

			rs, _ := u.ReviewState.Get()
			rv, ok := rs.Lookup("script.js")
			require.True(t, ok)
			assert.False(t, rv.Passed)
			require.Len(t, rv.Issues, 1)
			assert.Equal(t, "Debug flag is enabled in production", rv.Issues[0].Description)
			assert.False(t, rs.AllPassed)
			assert.Len(t, m.Calls(), 2)
		})
	}
}

func TestReviewer_ErrorsPassTheFile(t *testing.T) {
	env := newEnv(t, llmtest.New(llmtest.Fail(errors.New("connection refused"))))
	env.write(t, map[string]string{"index.html": "<html><body>todo</body></html>"})
	s := withPlan(baseState(), taskPlan("index.html"))

	u, err := NewReviewer(env.deps).Run(context.Background(), s)
	require.NoError(t, err)

	rs, _ := u.ReviewState.Get()
	rv, _ := rs.Lookup("index.html")
	assert.True(t, rv.Passed)
	assert.Equal(t, 6, rv.OverallQuality)
	assert.Contains(t, rv.Summary, "Review error: ")
	assert.True(t, rs.AllPassed)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantPassed bool
		wantIssues []string
	}{
		{
			name:       "bare pass",
			text:       "PASS",
			wantPassed: true,
		},
		{
			name:       "pass with comment after blank lines",
			text:       "\n\n  pass - looks good\n",
			wantPassed: true,
		},
		{
			name:       "pass mentioning fail",
			text:       "PASS or FAIL? Hard to say",
			wantIssues: []string{"Code review failed for app.js"},
		},
		{
			name: "at most two issues",
			text: "FAIL\n- Missing event listener for the add button\n" +
				"- **Should** validate input before saving\n- Need to remove the debug logging\n",
			wantIssues: []string{
				"Missing event listener for the add button",
				"Should validate input before saving",
			},
		},
		{
			name:       "second line without keywords",
			text:       "FAIL\nBroken layout on narrow screens",
			wantIssues: []string{"Broken layout on narrow screens"},
		},
		{
			name:       "bare fail",
			text:       "FAIL",
			wantIssues: []string{"Code review failed for app.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := ParseVerdict("app.js", tt.text)

			assert.Equal(t, tt.wantPassed, rv.Passed)
			if tt.wantPassed {
				assert.Equal(t, 7, rv.OverallQuality)
				assert.Empty(t, rv.Issues)
				return
			}
			assert.Equal(t, 5, rv.OverallQuality)
			assert.Equal(t, "FAIL", rv.Summary)
			var got []string
			for _, issue := range rv.Issues {
				got = append(got, issue.Description)
				assert.Equal(t, state.SeverityMedium, issue.Severity)
			}
			assert.Equal(t, tt.wantIssues, got)
		})
	}
}
