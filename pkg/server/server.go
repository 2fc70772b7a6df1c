// Package server exposes the HTTP API: resolve a post URL, stream or
// save its media, crop uploads and serve the resulting files.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"reelproxy/pkg/config"
	"reelproxy/pkg/fetch"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/storage"
	"reelproxy/pkg/transform"
)

// MediaResolver resolves a content page URL into direct media URLs
type MediaResolver interface {
	Resolve(ctx context.Context, sourceURL string) (*instagram.ExtractionResult, error)
}

// MediaFetcher probes and streams remote media
type MediaFetcher interface {
	Probe(ctx context.Context, mediaURL string) fetch.Descriptor
	Open(ctx context.Context, mediaURL, rangeHeader string) (*http.Response, error)
}

// Cropper runs the video crop pipeline and file inspection
type Cropper interface {
	CropVideo(ctx context.Context, inputPath, outputPath string, region transform.Region) error
	ProbeFile(ctx context.Context, path string) (*transform.FileInfo, error)
}

// Server wires the API handlers to their collaborators
type Server struct {
	cfg        *config.Config
	logger     logger.Logger
	resolver   MediaResolver
	fetcher    MediaFetcher
	transcoder Cropper
	store      *storage.Manager
	requests   atomic.Uint64
	version    string
}

// New creates a Server
func New(cfg *config.Config, resolver MediaResolver, fetcher MediaFetcher, transcoder Cropper, store *storage.Manager, version string, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		cfg:        cfg,
		logger:     log,
		resolver:   resolver,
		fetcher:    fetcher,
		transcoder: transcoder,
		store:      store,
		version:    version,
	}
}

// Run serves the API until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithFields("server listening", map[string]interface{}{
			"addr":    srv.Addr,
			"version": s.version,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
