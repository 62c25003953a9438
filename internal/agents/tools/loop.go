package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

// DefaultMaxIterations bounds the model round trips in one loop.
const DefaultMaxIterations = 12

// LoopConfig describes one tool-calling conversation.
type LoopConfig struct {
	System        string
	User          string
	Tools         []tool.InvokableTool
	MaxIterations int
	Logger        *zap.Logger
}

// LoopResult summarizes a finished loop.
type LoopResult struct {
	Iterations int
	ToolCalls  int
	Final      string
	// Exhausted is set when the iteration bound ended the loop.
	Exhausted bool
}

// RunLoop drives model -> (tool calls -> tool results -> model)* until the
// model answers without calling a tool or the iteration bound is hit.
// A tool call the provider could not parse comes back as a *llm.GenerationError
// tagged write_file so the caller can salvage it.
func RunLoop(ctx context.Context, m model.BaseChatModel, cfg LoopConfig) (LoopResult, error) {
	var res LoopResult
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxIters := cfg.MaxIterations
	if maxIters <= 0 {
		maxIters = DefaultMaxIterations
	}

	baseTools := make([]tool.BaseTool, len(cfg.Tools))
	toolInfos := make([]*schema.ToolInfo, 0, len(cfg.Tools))
	for i, t := range cfg.Tools {
		baseTools[i] = t
		info, err := t.Info(ctx)
		if err != nil {
			return res, fmt.Errorf("tool info: %w", err)
		}
		toolInfos = append(toolInfos, info)
	}
	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{Tools: baseTools})
	if err != nil {
		return res, fmt.Errorf("create tools node: %w", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(cfg.System),
		schema.UserMessage(cfg.User),
	}

	for iter := 0; iter < maxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Iterations = iter + 1

		resp, err := m.Generate(ctx, messages, model.WithTools(toolInfos))
		if err != nil {
			return res, llm.Classify(err, NameWriteFile)
		}
		if resp == nil {
			return res, errors.New("model returned no message")
		}
		messages = append(messages, resp)

		if len(resp.ToolCalls) == 0 {
			if strings.Contains(resp.Content, "<function=") {
				return res, &llm.GenerationError{
					Tag:     NameWriteFile,
					Payload: resp.Content,
					Err:     errors.New("tool call emitted as text"),
				}
			}
			res.Final = resp.Content
			return res, nil
		}

		for _, tc := range resp.ToolCalls {
			logger.Debug("tool call", zap.String("tool", tc.Function.Name), zap.Int("iteration", iter+1))
		}
		res.ToolCalls += len(resp.ToolCalls)

		results, err := toolsNode.Invoke(ctx, resp)
		if err != nil {
			// The model gets the failure and another turn.
			results = []*schema.Message{
				schema.ToolMessage(fmt.Sprintf("Error executing tools: %v", err), resp.ToolCalls[0].ID),
			}
		}
		messages = append(messages, results...)
	}

	res.Exhausted = true
	logger.Warn("tool loop hit iteration bound", zap.Int("max_iterations", maxIters))
	return res, nil
}
