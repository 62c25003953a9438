package server

import "github.com/Saurav134/Agentic-Project-Builder/internal/pipeline"

// GenerateRequest is the payload for POST /api/generate and the first
// message on /ws/generate.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	RecursionLimit int    `json:"recursion_limit"`
}

// GenerateResponse is the reply to POST /api/generate. Error is set only
// when the engine aborted the run.
type GenerateResponse struct {
	pipeline.Result
	Error string `json:"error,omitempty"`
}

// HealthResponse is the reply to GET /api/health.
type HealthResponse struct {
	Status      string `json:"status"`
	ProjectRoot string `json:"project_root"`
	Busy        bool   `json:"busy"`
}

// FilesResponse lists the generated tree.
type FilesResponse struct {
	Root  string   `json:"root"`
	Files []string `json:"files"`
}

// FileResponse carries one generated file.
type FileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ErrorResponse is every non-2xx JSON body.
type ErrorResponse struct {
	Error string `json:"error"`
}
