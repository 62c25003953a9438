package recovery

import (
	"errors"
	"testing"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_PlanRoundTrip(t *testing.T) {
	// Quotes and newlines arrive escaped, as providers quote them in errors.
	errText := `Error code: 400 - {'error': {'message': 'Failed to call a function.', 'code': 'tool_use_failed', ` +
		`'failed_generation': '<function=Plan>{\"name\": \"Todo App\", \"description\": \"Line one\nLine two\", ` +
		`\"techstack\": \"HTML, CSS, JavaScript\", \"features\": [\"Add todo\", \"Delete todo\"], ` +
		`\"files\": [{\"path\": \"index.html\", \"purpose\": \"Markup\"}, {\"path\": \"js\/app.js\", \"purpose\": \"Logic \<main>\"}]}</function>'}}`

	plan, ok := Recover(errors.New(errText), TagPlan, PlanFields)
	require.True(t, ok)

	assert.Equal(t, state.Plan{
		Name:        "Todo App",
		Description: "Line one\nLine two",
		TechStack:   "HTML, CSS, JavaScript",
		Features:    []string{"Add todo", "Delete todo"},
		Files: []state.File{
			{Path: "index.html", Purpose: "Markup"},
			{Path: "js/app.js", Purpose: "Logic <main>"},
		},
	}, plan)
}

func TestRecover_JSONErrorBody(t *testing.T) {
	// A provider error whose body is JSON: the tool call sits inside a JSON string.
	errText := `error, status code: 400, message: {"error":{"message":"Failed to call a function","failed_generation":"<function=Plan>{\"name\": \"Notes\", \"files\": [{\"path\": \"main.py\"}]}</function>"}}`
	ge := &llm.GenerationError{Tag: TagPlan, Payload: errText}

	plan, ok := Recover(ge, TagPlan, PlanFields)
	require.True(t, ok)
	assert.Equal(t, "Notes", plan.Name)
	require.Len(t, plan.Files, 1)
	assert.Equal(t, "main.py", plan.Files[0].Path)
	assert.Equal(t, "Project file", plan.Files[0].Purpose)
}

func TestRecover_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"nil error", nil},
		{"no payload", errors.New("connection reset by peer")},
		{"other tag", errors.New(`failed_generation <function=TaskPlan>{"implementation_steps": []}</function>`)},
		{"garbage json", errors.New(`<function=Plan>{not json at all}</function>`)},
		{"fails validation", errors.New(`<function=Plan>{"name": "X", "files": []}</function>`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Recover(tt.err, TagPlan, PlanFields)
			assert.False(t, ok)
		})
	}
}

func TestRecover_ReviewNeedsVerdict(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "object quoted in a text verdict",
			err: &llm.GenerationError{Tag: TagCodeReview,
				Payload: `FAIL. The config object {"debug": true} leaks into production and should be removed.`},
		},
		{
			name: "error body with empty failed_generation",
			err: errors.New(`error, status code: 400, status: 400 Bad Request, message: Failed to call a function., ` +
				`body: {"error":{"message":"Failed to call a function. Please adjust your prompt.",` +
				`"type":"invalid_request_error","code":"tool_use_failed","failed_generation":""}}`),
		},
		{
			name: "bare error envelope",
			err:  &llm.GenerationError{Tag: TagCodeReview, Payload: `{"error":{"message":"rate limited","code":"429"}}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Recover(tt.err, TagCodeReview, ReviewFields("app.js"))
			assert.False(t, ok)
		})
	}
}

func TestRecover_UntaggedContent(t *testing.T) {
	ge := &llm.GenerationError{Tag: TagPlan, Payload: "Sure!\n```json\n{'name': 'Todo', \"files\": [{\"path\": \"index.html\"},]}\n```"}

	plan, ok := Recover(ge, TagPlan, PlanFields)
	require.True(t, ok)
	assert.Equal(t, "Todo", plan.Name)
}

func TestRecover_MapperPanicIsContained(t *testing.T) {
	boom := func(Fields) (int, error) { panic("boom") }
	_, ok := RecoverText(`{"a": 1}`, "X", boom)
	assert.False(t, ok)
}

func TestRecover_TaskPlanSorted(t *testing.T) {
	plan := state.Plan{Name: "Site", Files: []state.File{{Path: "index.html"}, {Path: "app.js"}}}
	payload := `<function=TaskPlan>{"implementation_steps": [` +
		`{"filepath": "app.js", "task_description": "logic", "priority": 3},` +
		`{"filepath": "index.html", "task_description": "markup", "priority": "1"}]}</function>`

	tp, ok := RecoverText(payload, TagTaskPlan, TaskPlanFields(plan))
	require.True(t, ok)
	assert.Equal(t, []string{"index.html", "app.js"}, tp.Filepaths())
	assert.Equal(t, "Site", tp.Plan.Name)
}

func TestReviewFields(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		review, err := ReviewFields("app.js")(Fields{"passed": true})
		require.NoError(t, err)
		assert.True(t, review.Passed)
		assert.Equal(t, 7, review.OverallQuality)
		assert.Equal(t, "app.js", review.Filepath)
	})

	t.Run("missing verdict rejected", func(t *testing.T) {
		_, err := ReviewFields("app.js")(Fields{"debug": true})
		assert.Error(t, err)
	})

	t.Run("failed without issues gets placeholder", func(t *testing.T) {
		review, err := ReviewFields("app.js")(Fields{"passed": false})
		require.NoError(t, err)
		require.Len(t, review.Issues, 1)
		assert.Equal(t, "unspecified", review.Issues[0].IssueType)
	})

	t.Run("alias severity accepted", func(t *testing.T) {
		review, err := ReviewFields("app.js")(Fields{
			"passed": false,
			"issues": []any{map[string]any{"issue_type": "bug", "description": "x", "severity": "Major"}},
		})
		require.NoError(t, err)
		assert.Equal(t, state.SeverityHigh, review.Issues[0].Severity)
	})

	t.Run("unknown severity rejected", func(t *testing.T) {
		_, err := ReviewFields("app.js")(Fields{
			"passed": false,
			"issues": []any{map[string]any{"severity": "apocalyptic"}},
		})
		assert.Error(t, err)
	})

	t.Run("quality out of range rejected", func(t *testing.T) {
		_, err := ReviewFields("app.js")(Fields{"passed": true, "overall_quality": 42.0})
		assert.Error(t, err)
	})
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  any
	}{
		{"trailing comma", `{"a": "x",}`, "a", "x"},
		{"single quotes", `{'a': 'x'}`, "a", "x"},
		{"unquoted value", `{"a": hello}`, "a", "hello"},
		{"raw newline", "{\"a\": \"x\ny\"}", "a", "x\ny"},
		{"truncated", `{"a": "x`, "a", "x"},
		{"missing comma", "{\"a\": 1\n\"b\": 2}", "b", 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := decodeObject(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, obj[tt.key])
		})
	}
}
