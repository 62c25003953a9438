package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/sandbox"
)

const maxRequestBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ProjectRoot: s.fs.Root(),
		Busy:        s.running.Load(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !s.acquire() {
		writeError(w, http.StatusConflict, ErrBusy.Error())
		return
	}
	defer s.release()

	res, err := s.gen.Run(r.Context(), req.Prompt, req.RecursionLimit)
	if err != nil {
		s.logger.Error("generation aborted", zap.Error(err), zap.String("run_id", res.RunID))
		writeAPIJSON(w, http.StatusInternalServerError, GenerateResponse{Result: res, Error: err.Error()})
		return
	}
	writeAPIJSON(w, http.StatusOK, GenerateResponse{Result: res})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.fs.List(".")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []string{}
	}
	writeAPIJSON(w, http.StatusOK, FilesResponse{Root: s.fs.Root(), Files: files})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	content, found, err := s.fs.Read(path)
	switch {
	case errors.Is(err, sandbox.ErrAbsolutePath), errors.Is(err, sandbox.ErrOutsideRoot), errors.Is(err, sandbox.ErrEmptyPath):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case !found:
		writeError(w, http.StatusNotFound, "file not found")
	default:
		writeAPIJSON(w, http.StatusOK, FileResponse{Path: path, Content: content})
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	// Buffer first so a failed archive still gets a proper status.
	var buf bytes.Buffer
	if err := s.fs.Archive(&buf); err != nil {
		s.logger.Error("archive project", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="project.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeAPIJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeAPIJSON(w, status, ErrorResponse{Error: msg})
}
