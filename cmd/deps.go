/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/agents/core"
	"github.com/Saurav134/Agentic-Project-Builder/internal/config"
	"github.com/Saurav134/Agentic-Project-Builder/internal/logger"
	"github.com/Saurav134/Agentic-Project-Builder/internal/metrics"
	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/policy"
	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
	"github.com/Saurav134/Agentic-Project-Builder/internal/shell"
)

// builder bundles everything a command needs to run the pipeline.
type builder struct {
	cfg     config.Config
	fs      *sandbox.FS
	metrics *metrics.Metrics
	runner  *pipeline.Runner
	log     *zap.Logger
}

// newBuilder resolves configuration and assembles the pipeline over the
// configured output directory.
func newBuilder(ctx context.Context) (*builder, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.L()

	fs, err := sandbox.New(cfg.Project.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("prepare output directory: %w", err)
	}

	engine, err := policy.NewEngine(ctx, policy.EngineConfig{PoliciesDir: cfg.Policy.Dir})
	if err != nil {
		return nil, fmt.Errorf("load write policies: %w", err)
	}
	fs = fs.WithGuard(engine.Guard(log))

	m := metrics.New()
	runner, err := pipeline.New(core.Deps{
		Models:  cfg.Models(),
		FS:      fs,
		Runner:  shell.NewExec(fs.Root()),
		Logger:  log,
		Metrics: m,
		Policy:  engine,
		Options: cfg.StageOptions(),
	}, pipeline.WithDefaultStepLimit(cfg.Pipeline.RecursionLimit))
	if err != nil {
		return nil, err
	}

	log.Debug("builder ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("root", fs.Root()),
		zap.Strings("policies", engine.PolicyNames()))

	return &builder{cfg: cfg, fs: fs, metrics: m, runner: runner, log: log}, nil
}
