package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the routed handler with the middleware chain applied.
// CORS sits outermost so preflight requests short-circuit before
// logging and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/review", s.handleReview)
	mux.HandleFunc("POST /api/download", s.handleDownload)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/crop", s.handleCrop)
	mux.HandleFunc("POST /api/file-info", s.handleFileInfo)
	mux.HandleFunc("GET /api/video/{filename}", s.handleServeVideo)
	mux.HandleFunc("GET /api/download-processed/{filename}", s.handleServeProcessed)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return corsMiddleware(loggingMiddleware(s.logger)(metricsMiddleware(mux)))
}
