package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// Register decoders for image uploads inspected with DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/instagram"
	"reelproxy/pkg/metrics"
	"reelproxy/pkg/storage"
	"reelproxy/pkg/transform"
)

// flexBool accepts JSON true/false as well as "true"/"false" strings,
// which some clients send for form-like payloads
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = flexBool(s == "true" || s == "1")
		return nil
	}
	return fmt.Errorf("cannot parse %s as bool", data)
}

type reviewRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL    string   `json:"url"`
	Crop   flexBool `json:"crop"`
	X      int      `json:"x"`
	Y      int      `json:"y"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

type videoInfo struct {
	URL         string  `json:"url"`
	MediaURL    string  `json:"mediaUrl"`
	FileSize    *int64  `json:"fileSize"`
	ContentType string  `json:"contentType"`
	Title       string  `json:"title"`
	Thumbnail   *string `json:"thumbnail"`
	PreviewURL  string  `json:"previewUrl"`
}

type reviewResponse struct {
	Success   bool      `json:"success"`
	VideoInfo videoInfo `json:"videoInfo"`
}

const defaultTitle = "Instagram Reel"

// resolveSource validates the URL out of a request body and resolves
// it, writing the error response itself on failure. ok is false once a
// response has been written.
func (s *Server) resolveSource(w http.ResponseWriter, r *http.Request, sourceURL string) (*instagram.ExtractionResult, bool) {
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return nil, false
	}
	if !instagram.IsValidSourceURL(sourceURL) {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return nil, false
	}

	s.requests.Add(1)

	start := time.Now()
	result, err := s.resolver.Resolve(r.Context(), sourceURL)
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		tagged := errs.Classify(err)
		metrics.ResolutionsTotal.WithLabelValues("error", string(tagged.Type)).Inc()
		s.logger.WarnWithFields("resolution failed", map[string]interface{}{
			"url":   sourceURL,
			"error": err.Error(),
		})
		writeResolveError(w, err)
		return nil, false
	}
	metrics.ResolutionsTotal.WithLabelValues("success", "").Inc()
	return result, true
}

// handleReview resolves a post URL and reports media metadata without
// transferring the media itself
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	result, ok := s.resolveSource(w, r, req.URL)
	if !ok {
		return
	}
	mediaURL := result.CanonicalURL()

	desc := s.fetcher.Probe(r.Context(), mediaURL)

	info := videoInfo{
		URL:         req.URL,
		MediaURL:    mediaURL,
		ContentType: desc.ContentType,
		Title:       result.Title,
		PreviewURL:  "/api/preview?url=" + url.QueryEscape(mediaURL),
	}
	if desc.SizeBytes >= 0 {
		size := desc.SizeBytes
		info.FileSize = &size
	}
	if info.ContentType == "" {
		info.ContentType = "video/mp4"
	}
	if info.Title == "" {
		info.Title = defaultTitle
	}
	if result.Thumbnail != "" {
		thumb := result.Thumbnail
		info.Thumbnail = &thumb
	}

	writeJSON(w, http.StatusOK, reviewResponse{Success: true, VideoInfo: info})
}

// handleDownload resolves a post URL and either streams the media back
// as an attachment or saves it for later pickup. With crop enabled the
// media goes through the ffmpeg pipeline first.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}

	result, ok := s.resolveSource(w, r, req.URL)
	if !ok {
		return
	}
	mediaURL := result.CanonicalURL()

	if bool(req.Crop) {
		region := transform.Region{Left: req.X, Top: req.Y, Width: req.Width, Height: req.Height}
		s.downloadCropped(w, r, mediaURL, region)
		return
	}

	if s.cfg.Server.DirectStream {
		s.streamAttachment(w, r, mediaURL)
		return
	}
	s.saveDownload(w, r, mediaURL)
}

// streamAttachment proxies the media body straight to the client
func (s *Server) streamAttachment(w http.ResponseWriter, r *http.Request, mediaURL string) {
	resp, err := s.fetcher.Open(r.Context(), mediaURL, "")
	if err != nil {
		s.logger.WithError(err).Warn("media fetch for download failed")
		writeError(w, http.StatusInternalServerError, msgDownloadFailed)
		return
	}
	defer resp.Body.Close()

	filename := fmt.Sprintf("reel_%d.mp4", time.Now().UnixMilli())
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if resp.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are gone; all we can do is log
		s.logger.WithError(err).Warn("media stream interrupted")
	}
}

// saveDownload stores the media under the downloads directory and
// returns a pickup URL. The file expires after the download TTL.
func (s *Server) saveDownload(w http.ResponseWriter, r *http.Request, mediaURL string) {
	resp, err := s.fetcher.Open(r.Context(), mediaURL, "")
	if err != nil {
		s.logger.WithError(err).Warn("media fetch for download failed")
		writeError(w, http.StatusInternalServerError, msgDownloadFailed)
		return
	}
	defer resp.Body.Close()

	path := s.store.Reserve(storage.CategoryDownloads, "reel", "mp4")
	size, err := writeToFile(path, resp.Body)
	if err != nil {
		s.store.Release(path)
		s.logger.WithError(err).Error("could not save download")
		writeError(w, http.StatusInternalServerError, msgDownloadFailed)
		return
	}
	s.store.ReleaseAfter(path, s.cfg.Storage.DownloadTTL)

	filename := filepath.Base(path)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"filename":    filename,
		"downloadUrl": "/api/video/" + filename,
		"fileSize":    size,
	})
}

// cropPipeline stages the source into scratch space and runs the
// transcoder. Its two stages are strictly sequential: the input file is
// fully flushed before ffmpeg sees it. The input artifact is deleted on
// every exit path; the output artifact only survives on success, and
// scheduling its expiry is the caller's job.
func (s *Server) cropPipeline(ctx context.Context, src io.Reader, ext string, region transform.Region, outCat storage.Category) (string, error) {
	inputPath := s.store.Reserve(storage.CategoryWork, "input", ext)
	defer s.store.Release(inputPath)

	if _, err := writeToFile(inputPath, src); err != nil {
		return "", errs.Wrap(errs.ErrorTypeStorage, "could not stage media for crop", err)
	}

	outputPath := s.store.Reserve(outCat, "cropped", "mp4")
	if err := s.transcoder.CropVideo(ctx, inputPath, outputPath, region); err != nil {
		s.store.Release(outputPath)
		return "", err
	}
	return outputPath, nil
}

// downloadCropped downloads the media to scratch space, crops it and
// streams the result. All intermediate files are deleted shortly after
// the response finishes.
func (s *Server) downloadCropped(w http.ResponseWriter, r *http.Request, mediaURL string, region transform.Region) {
	if err := region.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, msgCropFailed)
		return
	}

	resp, err := s.fetcher.Open(r.Context(), mediaURL, "")
	if err != nil {
		s.logger.WithError(err).Warn("media fetch for crop failed")
		writeError(w, http.StatusInternalServerError, msgDownloadFailed)
		return
	}
	defer resp.Body.Close()

	if s.cfg.Server.DirectStream {
		outputPath, err := s.cropPipeline(r.Context(), resp.Body, "mp4", region, storage.CategoryWork)
		if err != nil {
			s.logger.WithError(err).Error("crop pipeline failed")
			writeError(w, http.StatusInternalServerError, msgCropFailed)
			return
		}
		s.serveFileAttachment(w, r, outputPath, fmt.Sprintf("cropped_reel_%d.mp4", time.Now().UnixMilli()))
		s.store.ReleaseAfter(outputPath, s.cfg.Storage.CropCleanup)
		return
	}

	outputPath, err := s.cropPipeline(r.Context(), resp.Body, "mp4", region, storage.CategoryProcessed)
	if err != nil {
		s.logger.WithError(err).Error("crop pipeline failed")
		writeError(w, http.StatusInternalServerError, msgCropFailed)
		return
	}

	// Deletion is scheduled once, at pickup time
	filename := filepath.Base(outputPath)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"filename":    filename,
		"downloadUrl": "/api/download-processed/" + filename,
	})
}

// handlePreview proxies a direct media URL (handed out by review) for
// in-browser playback, passing the client's Range request through to
// the upstream so seeking works
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, msgURLRequired)
		return
	}
	if parsed, err := url.Parse(mediaURL); err != nil || !parsed.IsAbs() ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return
	}

	resp, err := s.fetcher.Open(r.Context(), mediaURL, r.Header.Get("Range"))
	if err != nil {
		s.logger.WithError(err).Warn("media fetch for preview failed")
		writeError(w, http.StatusInternalServerError, msgResolveFailed)
		return
	}
	defer resp.Body.Close()

	copyHeader(w, resp, "Content-Type", "video/mp4")
	copyHeader(w, resp, "Content-Length", "")
	copyHeader(w, resp, "Content-Range", "")
	copyHeader(w, resp, "Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		s.logger.WithError(err).Debug("preview stream interrupted")
	}
}

// handleCrop crops an uploaded file. Images are processed in memory;
// videos go to scratch space and through ffmpeg.
func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Transform.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgUploadRequired)
		return
	}
	defer file.Close()

	ext := transform.NormalizeExt(filepath.Ext(header.Filename))
	if !transform.IsSupportedExt(ext) {
		writeError(w, http.StatusBadRequest, msgUnsupportedType)
		return
	}

	region := transform.Region{
		Left:   formInt(r, "x", 0),
		Top:    formInt(r, "y", 0),
		Width:  formInt(r, "width", 100),
		Height: formInt(r, "height", 100),
	}

	if transform.IsImageExt(ext) {
		format := r.FormValue("format")
		if format == "" {
			format = "jpeg"
		}
		quality := formInt(r, "quality", 90)

		// Crop into memory first so a decode or region failure can still
		// produce a proper JSON error instead of a half-written body
		var buf bytes.Buffer
		if err := transform.CropImage(file, &buf, region, format, quality); err != nil {
			s.logger.WithError(err).Warn("image crop failed")
			status := http.StatusInternalServerError
			if errs.Is(err, errs.ErrorTypeValidation) {
				status = http.StatusBadRequest
			}
			writeError(w, status, msgCropFailed)
			return
		}

		w.Header().Set("Content-Type", "image/"+format)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cropped."+format))
		if _, err := buf.WriteTo(w); err != nil {
			s.logger.WithError(err).Debug("image response interrupted")
		}
		return
	}

	outputPath, err := s.cropPipeline(r.Context(), file, ext, region, storage.CategoryWork)
	if err != nil {
		s.logger.WithError(err).Error("crop pipeline failed")
		writeError(w, http.StatusInternalServerError, msgCropFailed)
		return
	}

	s.serveFileAttachment(w, r, outputPath, "cropped_"+header.Filename)
	s.store.ReleaseAfter(outputPath, s.cfg.Storage.CropCleanup)
}

// handleFileInfo reports dimensions and duration for an uploaded file
func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Transform.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgUploadRequired)
		return
	}
	defer file.Close()

	ext := transform.NormalizeExt(filepath.Ext(header.Filename))
	switch {
	case transform.IsImageExt(ext):
		cfg, _, err := image.DecodeConfig(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, msgFileInfoFailed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"fileInfo": map[string]interface{}{
				"type":   "image",
				"width":  cfg.Width,
				"height": cfg.Height,
				"size":   header.Size,
			},
		})

	case transform.IsVideoExt(ext):
		path := s.store.Reserve(storage.CategoryWork, "probe", ext)
		// Released on every exit path, including a partial write
		defer s.store.Release(path)

		if _, err := writeToFile(path, file); err != nil {
			s.logger.WithError(err).Error("could not stage upload")
			writeError(w, http.StatusInternalServerError, msgFileInfoFailed)
			return
		}
		info, err := s.transcoder.ProbeFile(r.Context(), path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, msgFileInfoFailed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"fileInfo": map[string]interface{}{
				"type":     "video",
				"width":    info.Width,
				"height":   info.Height,
				"duration": info.Duration,
				"format":   info.Format,
				"size":     header.Size,
			},
		})

	default:
		writeError(w, http.StatusBadRequest, msgUnsupportedType)
	}
}

// handleServeVideo serves a saved download. Its deletion was scheduled
// when the file was saved, so pickup does not schedule a second one.
func (s *Server) handleServeVideo(w http.ResponseWriter, r *http.Request) {
	s.serveStored(w, r, storage.CategoryDownloads, 0)
}

// handleServeProcessed serves a crop result, which expires quickly
func (s *Server) handleServeProcessed(w http.ResponseWriter, r *http.Request) {
	s.serveStored(w, r, storage.CategoryProcessed, s.cfg.Storage.ProcessedTTL)
}

// serveStored streams a stored artifact. A ttl > 0 schedules its
// deletion at pickup; each artifact gets at most one schedule.
func (s *Server) serveStored(w http.ResponseWriter, r *http.Request, cat storage.Category, ttl time.Duration) {
	path, err := s.store.Path(cat, r.PathValue("filename"))
	if err != nil || !s.store.Exists(path) {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
	if ttl > 0 {
		s.store.ReleaseAfter(path, ttl)
	}
}

// handleHealth reports liveness along with build and traffic info
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Server chal raha hai",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
		"requests":  s.requests.Load(),
	})
}

// serveFileAttachment streams a file on disk as a download
func (s *Server) serveFileAttachment(w http.ResponseWriter, r *http.Request, path, filename string) {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

func writeToFile(path string, src io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// formInt reads a numeric form field, falling back when it is absent
// or unparseable
func formInt(r *http.Request, name string, fallback int) int {
	v := r.FormValue(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func copyHeader(w http.ResponseWriter, resp *http.Response, name, fallback string) {
	if v := resp.Header.Get(name); v != "" {
		w.Header().Set(name, v)
	} else if fallback != "" {
		w.Header().Set(name, fallback)
	}
}
