package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GROQ_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "PROJECT_OUTPUT_DIR"} {
		t.Setenv(k, "")
	}
	home := t.TempDir()
	prev := GlobalDir
	GlobalDir = func() (string, error) { return filepath.Join(home, ".builder"), nil }
	t.Cleanup(func() { GlobalDir = prev })
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "builder.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	v := viper.New()
	require.NoError(t, Setup(v, ""))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "generated_project", cfg.Project.OutputDir)
	assert.Equal(t, 100, cfg.Pipeline.RecursionLimit)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, core.DefaultOptions(), cfg.StageOptions())
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	isolate(t)
	file := writeFile(t, `
llm:
  provider: openai
  model: gpt-4o
  apiKeys:
    openai: from-file
  roles:
    review:
      temperature: 0.5
      maxTokens: 2048
review:
  maxIterations: 3
tests:
  runTimeout: 2m
server:
  port: 9000
`)
	t.Setenv("PROJECT_OUTPUT_DIR", "/tmp/legacy-out")
	t.Setenv("APB_CODER_CONTEXTFILES", "8")

	v := viper.New()
	require.NoError(t, Setup(v, file))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "/tmp/legacy-out", cfg.Project.OutputDir)
	assert.Equal(t, 9000, cfg.Server.Port)

	opts := cfg.StageOptions()
	assert.Equal(t, 3, opts.MaxReviewIterations)
	assert.Equal(t, 8, opts.ContextFiles)
	assert.Equal(t, 2*time.Minute, opts.RunTimeout)

	mc := cfg.ModelConfig()
	assert.Equal(t, llm.Provider(llm.ProviderOpenAI), mc.Provider)
	assert.Equal(t, "gpt-4o", mc.Model)

	roles := cfg.RoleOverrides()
	assert.Equal(t, llm.RoleSettings{Temperature: 0.5, MaxTokens: 2048}, roles[llm.RoleReview])

	s := cfg.Models().Settings(llm.RoleReview)
	assert.Equal(t, "gpt-4o", s.Model)
	assert.Equal(t, 2048, s.MaxTokens)
}

func TestLoad_PrefixedOutputDirWins(t *testing.T) {
	isolate(t)
	t.Setenv("PROJECT_OUTPUT_DIR", "legacy")
	t.Setenv("APB_PROJECT_OUTPUTDIR", "preferred")

	v := viper.New()
	require.NoError(t, Setup(v, ""))
	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "preferred", cfg.Project.OutputDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown provider", "llm:\n  provider: bedrock\n"},
		{"unknown role", "llm:\n  roles:\n    poet:\n      temperature: 0.1\n"},
		{"temperature out of range", "llm:\n  roles:\n    coding:\n      temperature: 3\n"},
		{"zero review cap", "review:\n  maxIterations: 0\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"bad log level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			v := viper.New()
			require.NoError(t, Setup(v, writeFile(t, tt.yaml)))
			_, err := LoadFrom(v)
			assert.Error(t, err)
		})
	}
}

func TestSetup_UnreadableFile(t *testing.T) {
	isolate(t)
	v := viper.New()
	err := Setup(v, writeFile(t, "llm: [unterminated"))
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		set      map[string]string
		env      map[string]string
		want     string
	}{
		{"config key wins", llm.ProviderGroq, map[string]string{"llm.apiKeys.groq": " cfg "}, map[string]string{"GROQ_API_KEY": "env"}, "cfg"},
		{"groq env", llm.ProviderGroq, nil, map[string]string{"GROQ_API_KEY": "gsk"}, "gsk"},
		{"anthropic env", llm.ProviderAnthropic, nil, map[string]string{"ANTHROPIC_API_KEY": "ant"}, "ant"},
		{"gemini falls back to google key", llm.ProviderGemini, nil, map[string]string{"GOOGLE_API_KEY": "goog"}, "goog"},
		{"other provider key ignored", llm.ProviderOpenAI, nil, map[string]string{"GROQ_API_KEY": "gsk"}, ""},
		{"ollama needs none", llm.ProviderOllama, nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			assert.Equal(t, tt.want, ResolveAPIKey(v, tt.provider))
		})
	}
}

func TestCrashDir(t *testing.T) {
	isolate(t)
	dir, err := GlobalDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "crash"), CrashDir())
}
