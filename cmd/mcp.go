/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"
	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
)

// GenerateProjectParams are the arguments of the generate_project tool.
type GenerateProjectParams struct {
	Prompt         string `json:"prompt"`                    // Required: one-line project request
	RecursionLimit int    `json:"recursion_limit,omitempty"` // Optional: stage execution budget
}

// ReadFileParams are the arguments of the read_file tool.
type ReadFileParams struct {
	Path string `json:"path"` // Required: path relative to the project root
}

// ListFilesParams are the arguments of the list_files tool.
type ListFilesParams struct{}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing project generation",
	Long: `Start a Model Context Protocol (MCP) server over stdio so AI assistants
can generate projects and inspect the generated files.

Tools:
  generate_project  run the pipeline for a prompt
  list_files        list files under the project root
  read_file         read one generated file

The server runs until the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpTextResponse(text string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, nil
}

// mcpErrorResponse reports a tool failure in the result so the client model
// can see it.
func mcpErrorResponse(err error) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}, nil
}

func runMCPServer(ctx context.Context) error {
	// stdout carries JSON-RPC; everything else goes to stderr.
	fmt.Fprintln(os.Stderr, "builder MCP server starting...")

	rt, err := newBuilder(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize builder: %w", err)
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "builder-mcp", Version: version}, &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			fmt.Fprintln(os.Stderr, "✓ MCP connection established")
			if viper.GetBool("verbose") {
				fmt.Fprintf(os.Stderr, "[DEBUG] project root %s\n", rt.fs.Root())
			}
		},
	})
	registerMCPTools(server, rt.runner, rt.fs, rt.log)

	if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// registerMCPTools adds the builder tools to server. Generation holds a lock
// so one client cannot start overlapping runs in the same root.
func registerMCPTools(server *mcpsdk.Server, gen mcpGenerator, fs *sandbox.FS, log *zap.Logger) {
	var mu sync.Mutex

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "generate_project",
		Description: "Generate a complete small project (plan, files, review, tests, README) from a one-line request. Returns the run status, file list and summary.",
	}, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[GenerateProjectParams]) (*mcpsdk.CallToolResultFor[any], error) {
		prompt := strings.TrimSpace(params.Arguments.Prompt)
		if prompt == "" {
			return mcpErrorResponse(errors.New("prompt is required"))
		}
		if !mu.TryLock() {
			return mcpErrorResponse(errors.New("a generation is already running"))
		}
		defer mu.Unlock()

		res, err := gen.Run(ctx, prompt, params.Arguments.RecursionLimit)
		if err != nil {
			log.Warn("mcp generation aborted", zap.Error(err))
			return &mcpsdk.CallToolResultFor[any]{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: formatMCPResult(res) + "\nAborted: " + err.Error()}},
				IsError: true,
			}, nil
		}
		return mcpTextResponse(formatMCPResult(res))
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "list_files",
		Description: "List every file under the generated project root.",
	}, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[ListFilesParams]) (*mcpsdk.CallToolResultFor[any], error) {
		files, err := fs.List(".")
		if err != nil {
			return mcpErrorResponse(err)
		}
		if len(files) == 0 {
			return mcpTextResponse("The project root is empty. Call generate_project first.")
		}
		return mcpTextResponse(strings.Join(files, "\n"))
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "read_file",
		Description: "Read one generated file. {\"path\":\"index.html\"}",
	}, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[ReadFileParams]) (*mcpsdk.CallToolResultFor[any], error) {
		content, found, err := fs.Read(params.Arguments.Path)
		if err != nil {
			return mcpErrorResponse(err)
		}
		if !found {
			return mcpErrorResponse(fmt.Errorf("file not found: %s", params.Arguments.Path))
		}
		return mcpTextResponse(content)
	})
}

type mcpGenerator interface {
	Run(ctx context.Context, prompt string, stepBudget int, observers ...pipeline.Observer) (pipeline.Result, error)
}

// formatMCPResult renders a run result as Markdown for the client model.
func formatMCPResult(res pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Run %s\n\n", res.RunID)
	fmt.Fprintf(&b, "- Status: %s\n", res.Status)
	fmt.Fprintf(&b, "- Location: %s\n", res.ProjectPath)
	if len(res.Files) > 0 {
		b.WriteString("\n### Files\n")
		for _, f := range res.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(res.UnresolvedFiles) > 0 {
		b.WriteString("\n### Accepted with known issues\n")
		for _, f := range res.UnresolvedFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(res.Errors) > 0 {
		b.WriteString("\n### Errors\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	if res.Summary != "" {
		fmt.Fprintf(&b, "\n### Summary\n%s\n", res.Summary)
	}
	return b.String()
}
