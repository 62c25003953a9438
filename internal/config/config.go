// Package config resolves builder settings from flags, environment, .env and
// an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

const (
	configName = "builder"
	envPrefix  = "APB"
)

// Config is the resolved, validated configuration for one process.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Project  ProjectConfig  `mapstructure:"project" yaml:"project"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Review   ReviewConfig   `mapstructure:"review" yaml:"review"`
	Coder    CoderConfig    `mapstructure:"coder" yaml:"coder"`
	Tests    TestsConfig    `mapstructure:"tests" yaml:"tests"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Policy   PolicyConfig   `mapstructure:"policy" yaml:"policy"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type LLMConfig struct {
	Provider string                  `mapstructure:"provider" yaml:"provider" validate:"required,oneof=groq openai ollama anthropic gemini"`
	Model    string                  `mapstructure:"model" yaml:"model"`
	BaseURL  string                  `mapstructure:"baseURL" yaml:"baseURL" validate:"omitempty,url"`
	APIKey   string                  `mapstructure:"-" yaml:"-"`
	Roles    map[string]RoleOverride `mapstructure:"roles" yaml:"roles" validate:"dive,keys,oneof=planning architect coding review fixer default,endkeys"`
}

// RoleOverride tunes one model role. Zero fields keep the built-in value.
type RoleOverride struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `mapstructure:"maxTokens" yaml:"maxTokens" validate:"gte=0"`
}

type ProjectConfig struct {
	OutputDir string `mapstructure:"outputDir" yaml:"outputDir" validate:"required"`
}

type PipelineConfig struct {
	RecursionLimit int `mapstructure:"recursionLimit" yaml:"recursionLimit" validate:"gte=1"`
}

type ReviewConfig struct {
	MaxIterations int `mapstructure:"maxIterations" yaml:"maxIterations" validate:"gte=1"`
}

type CoderConfig struct {
	ContextFiles      int `mapstructure:"contextFiles" yaml:"contextFiles" validate:"gte=0"`
	ContextChars      int `mapstructure:"contextChars" yaml:"contextChars" validate:"gte=0"`
	MaxToolIterations int `mapstructure:"maxToolIterations" yaml:"maxToolIterations" validate:"gte=1"`
}

type TestsConfig struct {
	VersionTimeout time.Duration `mapstructure:"versionTimeout" yaml:"versionTimeout" validate:"gt=0"`
	RunTimeout     time.Duration `mapstructure:"runTimeout" yaml:"runTimeout" validate:"gt=0"`
}

type ServerConfig struct {
	Port    int      `mapstructure:"port" yaml:"port" validate:"gte=1,lte=65535"`
	Origins []string `mapstructure:"origins" yaml:"origins"`
}

// PolicyConfig points at extra .rego write rules layered over the built-in set.
type PolicyConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

var validate = validator.New()

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	opts := core.DefaultOptions()

	v.SetDefault("llm.provider", llm.DefaultProvider)
	v.SetDefault("project.outputDir", "generated_project")
	v.SetDefault("pipeline.recursionLimit", 100)
	v.SetDefault("review.maxIterations", opts.MaxReviewIterations)
	v.SetDefault("coder.contextFiles", opts.ContextFiles)
	v.SetDefault("coder.contextChars", opts.ContextChars)
	v.SetDefault("coder.maxToolIterations", opts.MaxToolIterations)
	v.SetDefault("tests.versionTimeout", opts.VersionTimeout)
	v.SetDefault("tests.runTimeout", opts.RunTimeout)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("log.level", "info")
}

// Setup wires the environment and config file search into v. file, when set,
// is the only config file considered.
func Setup(v *viper.Viper, file string) error {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("project.outputDir", envPrefix+"_PROJECT_OUTPUTDIR", "PROJECT_OUTPUT_DIR")
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := GlobalDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// Load resolves the process configuration from the global viper instance.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves and validates a Config from v.
func LoadFrom(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg.LLM.APIKey = ResolveAPIKey(v, llm.Provider(cfg.LLM.Provider))
	return cfg, nil
}

// ResolveAPIKey returns the key for provider from the per-provider config
// key, then the provider's conventional environment variable.
func ResolveAPIKey(v *viper.Viper, provider llm.Provider) string {
	if v.IsSet("llm.apiKeys." + string(provider)) {
		if key := strings.TrimSpace(v.GetString("llm.apiKeys." + string(provider))); key != "" {
			return key
		}
	}
	return providerEnvKey(provider)
}

func providerEnvKey(provider llm.Provider) string {
	switch provider {
	case llm.ProviderGroq:
		return strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	case llm.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case llm.ProviderAnthropic:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case llm.ProviderGemini:
		key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
		}
		return key
	default:
		return ""
	}
}

// ModelConfig is the provider-level config every role model starts from.
func (c Config) ModelConfig() llm.Config {
	return llm.Config{
		Provider: llm.Provider(c.LLM.Provider),
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
	}
}

// RoleOverrides converts the configured role table for llm.NewRegistry.
func (c Config) RoleOverrides() map[llm.Role]llm.RoleSettings {
	out := make(map[llm.Role]llm.RoleSettings, len(c.LLM.Roles))
	for name, o := range c.LLM.Roles {
		out[llm.Role(name)] = llm.RoleSettings{Model: o.Model, Temperature: o.Temperature, MaxTokens: o.MaxTokens}
	}
	return out
}

// Models builds the lazily constructed per-role model registry.
func (c Config) Models() *llm.Registry {
	return llm.NewRegistry(c.ModelConfig(), c.RoleOverrides())
}

// StageOptions returns the tunables handed to pipeline stages.
func (c Config) StageOptions() core.Options {
	return core.Options{
		MaxReviewIterations: c.Review.MaxIterations,
		ContextFiles:        c.Coder.ContextFiles,
		ContextChars:        c.Coder.ContextChars,
		MaxToolIterations:   c.Coder.MaxToolIterations,
		VersionTimeout:      c.Tests.VersionTimeout,
		RunTimeout:          c.Tests.RunTimeout,
	}
}
