package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// CommandExtractor resolves media URLs through the yt-dlp binary. It is
// the primary extraction capability; all the hard scraping work lives in
// the external tool.
type CommandExtractor struct {
	binaryPath string
	timeout    time.Duration
	logger     logger.Logger
}

// NewCommandExtractor creates an extractor backed by the binary at binaryPath
func NewCommandExtractor(binaryPath string, timeout time.Duration, log logger.Logger) *CommandExtractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &CommandExtractor{
		binaryPath: binaryPath,
		timeout:    timeout,
		logger:     log,
	}
}

// dump is the subset of the yt-dlp JSON dump this extractor reads
type dump struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Formats   []struct {
		URL string `json:"url"`
	} `json:"formats"`
}

// Extract runs yt-dlp in JSON-dump mode and parses out the media URLs
func (e *CommandExtractor) Extract(ctx context.Context, sourceURL string) (*ExtractionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// -f b: best single file, -j: dump JSON without downloading
	cmd := exec.CommandContext(ctx, e.binaryPath, "-f", "b", "-j", "--no-warnings", sourceURL)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		e.logger.WarnWithFields("extractor invocation failed", map[string]interface{}{
			"url":      sourceURL,
			"duration": time.Since(start),
			"stderr":   detail,
		})
		// The tool reports everything through free-text stderr; Classify
		// is the one place allowed to interpret it.
		return nil, errs.Classify(fmt.Errorf("extractor: %s: %w", detail, err))
	}

	var d dump
	if err := json.Unmarshal(out.Bytes(), &d); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, "failed to parse extractor output", err)
	}

	result := &ExtractionResult{
		Title:     d.Title,
		Thumbnail: d.Thumbnail,
	}
	if d.URL != "" {
		result.MediaURLs = append(result.MediaURLs, d.URL)
	}
	for _, f := range d.Formats {
		if f.URL != "" && f.URL != d.URL {
			result.MediaURLs = append(result.MediaURLs, f.URL)
		}
	}

	if len(result.MediaURLs) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, "extractor returned no media urls")
	}

	e.logger.DebugWithFields("extraction succeeded", map[string]interface{}{
		"url":        sourceURL,
		"media_urls": len(result.MediaURLs),
		"duration":   time.Since(start),
	})

	return result, nil
}
