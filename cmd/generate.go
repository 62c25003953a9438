/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Saurav134/Agentic-Project-Builder/internal/logger"
	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/state"
	"github.com/Saurav134/Agentic-Project-Builder/internal/ui"
)

var generateCmd = &cobra.Command{
	Use:     "generate [prompt]",
	Aliases: []string{"gen", "build"},
	Short:   "Generate a project from a one-line request",
	Long: `Generate runs the full builder pipeline for a request such as
"Create a simple todo app with HTML, CSS, and JavaScript".

The prompt may be given as arguments. When none is given and stdin is a
terminal, you are asked for one.

Examples:
  builder generate "Build a calculator web app"
  builder generate -o ./calc --recursion-limit 60 "Build a calculator web app"
  builder generate --json "Build a markdown previewer" > result.json`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Int("recursion-limit", 0, "maximum stage executions for this run (default pipeline.recursionLimit)")
	generateCmd.Flags().Bool("json", false, "print the run result as JSON")
	generateCmd.Flags().Bool("plain", false, "log progress lines instead of the interactive view")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt, err := resolvePrompt(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newBuilder(ctx)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("recursion-limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	plain, _ := cmd.Flags().GetBool("plain")

	logger.SetPrompt(prompt)
	track := func(e pipeline.Event) {
		if e.Type == pipeline.EventStageStart {
			logger.SetStage(e.RunID, e.Stage)
		}
	}

	var res pipeline.Result
	var runErr error
	if !plain && !asJSON && isInteractive() {
		// Info lines on stderr would tear the progress view.
		if !verbose {
			logger.SetLevel("warn")
		}
		res, runErr = runWithProgress(ctx, rt, prompt, limit, track)
	} else {
		res, runErr = rt.runner.Run(ctx, prompt, limit, track, progressPrinter(cmd.ErrOrStderr()))
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, ui.RenderResult(res))
		if res.Summary != "" {
			fmt.Fprintln(out)
			fmt.Fprintln(out, res.Summary)
		}
	}

	if runErr != nil {
		return runErr
	}
	if res.Status != state.StatusDone {
		return fmt.Errorf("generation finished with status %s", res.Status)
	}
	return nil
}

// resolvePrompt joins args, or asks on a terminal when there are none.
func resolvePrompt(args []string) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt != "" {
		return prompt, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("a prompt is required, e.g. builder generate \"Build a todo app\"")
	}

	p := promptui.Prompt{
		Label: "What should I build",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("describe the project in one line")
			}
			return nil
		},
	}
	answer, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return "", errors.New("cancelled")
		}
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runWithProgress drives the bubbletea view while the pipeline runs in the
// background. Quitting the view cancels the run; events are still drained so
// the pipeline never blocks on a closed view.
func runWithProgress(ctx context.Context, rt *builder, prompt string, limit int, track pipeline.Observer) (pipeline.Result, error) {
	desc, err := pipeline.Describe()
	if err != nil {
		return pipeline.Result{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan pipeline.Event, 64)
	done := make(chan ui.RunDoneMsg, 1)
	finished := make(chan struct{})
	var outcome ui.RunDoneMsg
	go func() {
		defer close(finished)
		res, err := rt.runner.Run(ctx, prompt, limit, track, func(e pipeline.Event) { events <- e })
		outcome = ui.RunDoneMsg{Result: res, Err: err}
		close(events)
		done <- outcome
	}()

	final, err := tea.NewProgram(ui.NewProgressModel(desc.Stages, events, done)).Run()
	if err != nil {
		rt.log.Warn("progress view failed", zap.Error(err))
	}
	if m, ok := final.(ui.ProgressModel); ok && m.Outcome != nil {
		return m.Outcome.Result, m.Outcome.Err
	}

	// The view may still hold a pending read, so wait on finished rather
	// than done.
	cancel()
	go func() {
		for range events {
		}
	}()
	<-finished
	return outcome.Result, outcome.Err
}

// progressPrinter writes one line per stage transition for non-interactive runs.
func progressPrinter(w io.Writer) pipeline.Observer {
	return func(e pipeline.Event) {
		switch e.Type {
		case pipeline.EventStarted:
			fmt.Fprintf(w, "▶ run %s started\n", e.RunID)
		case pipeline.EventStageStart:
			fmt.Fprintf(w, "  → %s\n", pipeline.Title(e.Stage))
		case pipeline.EventStageEnd:
			if e.Message != "" {
				fmt.Fprintf(w, "  ✗ %s: %s\n", pipeline.Title(e.Stage), e.Message)
				return
			}
			fmt.Fprintf(w, "  ✓ %s (%s)\n", pipeline.Title(e.Stage), e.Duration.Round(100*time.Millisecond))
		case pipeline.EventError:
			fmt.Fprintf(w, "✗ %s\n", e.Message)
		case pipeline.EventComplete:
			fmt.Fprintf(w, "✓ run %s complete\n", e.RunID)
		}
	}
}
