/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Long: `Show prints the configuration after flags, APB_* environment variables,
.env and builder.yaml are merged and validated. API keys are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		out, err := renderConfig(cfg)
		if err != nil {
			return err
		}
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", used)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where configuration and crash reports are looked up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.GlobalDir()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config file:   %s\n", viper.ConfigFileUsed())
		fmt.Fprintf(cmd.OutOrStdout(), "global dir:    %s\n", dir)
		fmt.Fprintf(cmd.OutOrStdout(), "crash reports: %s\n", config.CrashDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd)
}

// shownConfig is the YAML view of config.Config.
type shownConfig struct {
	LLM struct {
		Provider string                         `yaml:"provider"`
		Model    string                         `yaml:"model"`
		BaseURL  string                         `yaml:"baseURL,omitempty"`
		APIKey   string                         `yaml:"apiKey"`
		Roles    map[llm.Role]shownRoleSettings `yaml:"roles"`
	} `yaml:"llm"`
	Project  config.ProjectConfig  `yaml:"project"`
	Pipeline config.PipelineConfig `yaml:"pipeline"`
	Review   config.ReviewConfig   `yaml:"review"`
	Coder    config.CoderConfig    `yaml:"coder"`
	Tests    struct {
		VersionTimeout string `yaml:"versionTimeout"`
		RunTimeout     string `yaml:"runTimeout"`
	} `yaml:"tests"`
	Server config.ServerConfig `yaml:"server"`
	Policy config.PolicyConfig `yaml:"policy"`
	Log    config.LogConfig    `yaml:"log"`
}

type shownRoleSettings struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"maxTokens"`
}

// renderConfig shows the per-role settings the registry will actually use.
func renderConfig(cfg config.Config) (string, error) {
	var s shownConfig
	s.LLM.Provider = cfg.LLM.Provider
	s.LLM.Model = cfg.LLM.Model
	s.LLM.BaseURL = cfg.LLM.BaseURL
	s.LLM.APIKey = maskKey(cfg.LLM.APIKey)
	s.LLM.Roles = make(map[llm.Role]shownRoleSettings)
	reg := cfg.Models()
	for _, role := range llm.Roles {
		rs := reg.Settings(role)
		s.LLM.Roles[role] = shownRoleSettings{Model: rs.Model, Temperature: rs.Temperature, MaxTokens: rs.MaxTokens}
	}
	s.Project = cfg.Project
	s.Pipeline = cfg.Pipeline
	s.Review = cfg.Review
	s.Coder = cfg.Coder
	s.Tests.VersionTimeout = cfg.Tests.VersionTimeout.String()
	s.Tests.RunTimeout = cfg.Tests.RunTimeout.String()
	s.Server = cfg.Server
	s.Policy = cfg.Policy
	s.Log = cfg.Log

	b, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}

// maskKey keeps the last four characters of a secret.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
	}
}
