package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return b.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "Usage:")
	for _, name := range []string{"generate", "graph", "serve", "mcp", "config", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "builder version "+GetVersion()+"\n", out)
}

func TestGraphCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "text by default",
			args: []string{"graph"},
			want: []string{"Entry: planner", "Coder -> Coder | Reviewer (conditional)", "Finalizer -> End"},
		},
		{
			name: "yaml",
			args: []string{"graph", "--format", "yaml"},
			want: []string{"entry: planner", "- name: test_generator"},
		},
		{
			name:    "unknown format",
			args:    []string{"graph", "-f", "dot"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { _ = graphCmd.Flags().Set("format", pipeline.FormatText) })
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "*****"},
		{"gsk_1234567890abcd", "**************abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, maskKey(tt.key))
		})
	}
}

func TestRenderConfig_MasksKeyAndResolvesRoles(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("llm.apiKeys.groq", "gsk_secretsecret1234")
	v.Set("llm.roles.coding.model", "my-coder")

	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	out, err := renderConfig(cfg)
	require.NoError(t, err)

	assert.NotContains(t, out, "gsk_secretsecret1234")
	assert.Regexp(t, `apiKey: ["']?\*{16}1234`, out)
	assert.Contains(t, out, "model: my-coder")
	assert.Contains(t, out, "outputDir: generated_project")
	assert.Contains(t, out, "runTimeout: 1m0s")
}

func TestResolvePrompt_JoinsArgs(t *testing.T) {
	got, err := resolvePrompt([]string{" Build", "a", "todo app "})
	require.NoError(t, err)
	assert.Equal(t, "Build a todo app", got)
}

func TestProgressPrinter(t *testing.T) {
	var b bytes.Buffer
	emit := progressPrinter(&b)

	emit(pipeline.Event{Type: pipeline.EventStarted, RunID: "r1"})
	emit(pipeline.Event{Type: pipeline.EventStageStart, Stage: "test_runner"})
	emit(pipeline.Event{Type: pipeline.EventStageEnd, Stage: "test_runner", Duration: 1234 * time.Millisecond})
	emit(pipeline.Event{Type: pipeline.EventStageEnd, Stage: "planner", Message: "boom"})
	emit(pipeline.Event{Type: pipeline.EventComplete, RunID: "r1"})

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "▶ run r1 started", lines[0])
	assert.Equal(t, "  → Test Runner", lines[1])
	assert.Equal(t, "  ✓ Test Runner (1.2s)", lines[2])
	assert.Equal(t, "  ✗ Planner: boom", lines[3])
	assert.Equal(t, "✓ run r1 complete", lines[4])
}

func TestFormatMCPResult(t *testing.T) {
	res := pipeline.Result{
		RunID:           "r1",
		Status:          state.StatusDone,
		ProjectPath:     "/tmp/out",
		Files:           []string{"index.html", "script.js"},
		UnresolvedFiles: []string{"script.js"},
		Summary:         "A todo app.",
	}
	out := formatMCPResult(res)

	assert.Contains(t, out, "- Status: DONE")
	assert.Contains(t, out, "### Files\n- index.html\n- script.js\n")
	assert.Contains(t, out, "### Accepted with known issues\n- script.js\n")
	assert.Contains(t, out, "### Summary\nA todo app.")
	assert.NotContains(t, out, "### Errors")
}
