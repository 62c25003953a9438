/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/logger"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables debug logging.
	verbose bool
	// version is the application version, overridden at build time.
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "builder",
	Short: "Turn a one-line request into a generated, reviewed project.",
	Long: `builder drives a pipeline of language-model stages: it plans the project,
breaks it into ordered file tasks, writes each file, reviews and fixes the code,
generates tests, runs them where it can, and writes a README.

Everything is written below the output directory (project.outputDir).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Setup(viper.GetViper(), cfgFile); err != nil {
			return err
		}
		level := viper.GetString("log.level")
		if verbose {
			level = "debug"
		}
		logger.Init(logger.Options{Level: level, Development: viper.GetBool("log.development")})
		logger.SetVersion(version)
		logger.SetCommand(cmd.CommandPath())
		logger.SetCrashDir(config.CrashDir())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./builder.yaml or $HOME/.builder/builder.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringP("output", "o", "", "directory the project is generated into")
	pf.String("provider", "", "LLM provider: groq, openai, ollama, anthropic, gemini")
	pf.String("model", "", "model ID used for every role without its own override")

	_ = viper.BindPFlag("project.outputDir", pf.Lookup("output"))
	_ = viper.BindPFlag("llm.provider", pf.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", pf.Lookup("model"))
}
