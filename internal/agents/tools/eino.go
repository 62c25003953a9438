/*
Package tools provides Eino-compatible file tools over the project sandbox,
and the bounded tool-calling loop the coder drives them with.
*/
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
)

// Tool names exposed to the model.
const (
	NameWriteFile  = "write_file"
	NameReadFile   = "read_file"
	NameListFiles  = "list_files"
	NameFileExists = "file_exists"
	NameCurrentDir = "get_current_directory"
)

// CoderTools returns the tools offered to the coder, all confined to fs.
func CoderTools(fs *sandbox.FS) []tool.InvokableTool {
	return []tool.InvokableTool{
		NewWriteFileTool(fs),
		NewReadFileTool(fs),
		NewListFilesTool(fs),
		NewCurrentDirTool(fs),
		NewFileExistsTool(fs),
	}
}

func decodeArgs(argsJSON string, v any) error {
	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}
	if err := json.Unmarshal([]byte(argsJSON), v); err != nil {
		return fmt.Errorf("parse arguments: %w", err)
	}
	return nil
}

// Tool failures are returned as text so the model can correct itself.
func toolError(format string, args ...any) (string, error) {
	return "ERROR: " + fmt.Sprintf(format, args...), nil
}

// =============================================================================
// WriteFileTool
// =============================================================================

type WriteFileTool struct{ fs *sandbox.FS }

func NewWriteFileTool(fs *sandbox.FS) *WriteFileTool { return &WriteFileTool{fs: fs} }

func (t *WriteFileTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameWriteFile,
		Desc: "Write the complete content of a project file, creating parent directories. Path is relative to the project root.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path":    {Type: schema.String, Desc: "Relative path of the file", Required: true},
			"content": {Type: schema.String, Desc: "Full file content", Required: true},
		}),
	}, nil
}

func (t *WriteFileTool) InvokableRun(ctx context.Context, argsJSON string, opts ...tool.Option) (string, error) {
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return toolError("%v", err)
	}
	if args.Path == "" {
		return toolError("path argument is required")
	}
	if err := t.fs.Write(ctx, args.Path, args.Content); err != nil {
		return toolError("failed to write %s: %v", args.Path, err)
	}
	return fmt.Sprintf("SUCCESS: Wrote %d characters to %s", len(args.Content), args.Path), nil
}

var _ tool.InvokableTool = (*WriteFileTool)(nil)

// =============================================================================
// ReadFileTool
// =============================================================================

type ReadFileTool struct{ fs *sandbox.FS }

func NewReadFileTool(fs *sandbox.FS) *ReadFileTool { return &ReadFileTool{fs: fs} }

func (t *ReadFileTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameReadFile,
		Desc: "Read a project file. Returns an empty string if the file does not exist.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {Type: schema.String, Desc: "Relative path of the file", Required: true},
		}),
	}, nil
}

func (t *ReadFileTool) InvokableRun(ctx context.Context, argsJSON string, opts ...tool.Option) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return toolError("%v", err)
	}
	content, _, err := t.fs.Read(args.Path)
	if err != nil {
		return toolError("failed to read %s: %v", args.Path, err)
	}
	return content, nil
}

var _ tool.InvokableTool = (*ReadFileTool)(nil)

// =============================================================================
// ListFilesTool
// =============================================================================

type ListFilesTool struct{ fs *sandbox.FS }

func NewListFilesTool(fs *sandbox.FS) *ListFilesTool { return &ListFilesTool{fs: fs} }

func (t *ListFilesTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameListFiles,
		Desc: "List every file below a project directory, one path per line.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"directory": {Type: schema.String, Desc: "Relative directory (default: project root)", Required: false},
		}),
	}, nil
}

func (t *ListFilesTool) InvokableRun(ctx context.Context, argsJSON string, opts ...tool.Option) (string, error) {
	var args struct {
		Directory string `json:"directory"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return toolError("%v", err)
	}
	files, err := t.fs.List(args.Directory)
	if err != nil {
		return toolError("failed to list files: %v", err)
	}
	if len(files) == 0 {
		return "No files found in directory.", nil
	}
	return strings.Join(files, "\n"), nil
}

var _ tool.InvokableTool = (*ListFilesTool)(nil)

// =============================================================================
// FileExistsTool
// =============================================================================

type FileExistsTool struct{ fs *sandbox.FS }

func NewFileExistsTool(fs *sandbox.FS) *FileExistsTool { return &FileExistsTool{fs: fs} }

func (t *FileExistsTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: NameFileExists,
		Desc: "Check whether a project file exists. Returns true or false.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"path": {Type: schema.String, Desc: "Relative path to check", Required: true},
		}),
	}, nil
}

func (t *FileExistsTool) InvokableRun(ctx context.Context, argsJSON string, opts ...tool.Option) (string, error) {
	var args struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(argsJSON, &args); err != nil {
		return toolError("%v", err)
	}
	if t.fs.Exists(args.Path) {
		return "true", nil
	}
	return "false", nil
}

var _ tool.InvokableTool = (*FileExistsTool)(nil)

// =============================================================================
// CurrentDirTool
// =============================================================================

type CurrentDirTool struct{ fs *sandbox.FS }

func NewCurrentDirTool(fs *sandbox.FS) *CurrentDirTool { return &CurrentDirTool{fs: fs} }

func (t *CurrentDirTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        NameCurrentDir,
		Desc:        "Return the project root directory.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

func (t *CurrentDirTool) InvokableRun(ctx context.Context, argsJSON string, opts ...tool.Option) (string, error) {
	return t.fs.Root(), nil
}

var _ tool.InvokableTool = (*CurrentDirTool)(nil)
