package server

import "net/http"

// Handler returns the routed, CORS-wrapped API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("GET /api/files/{path...}", s.handleGetFile)
	mux.HandleFunc("GET /api/download", s.handleDownload)
	mux.HandleFunc("GET /ws/generate", s.handleGenerateStream)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.corsMiddleware(mux)
}
