// Package fetch retrieves remote media over HTTP: a lightweight HEAD
// probe for metadata and a streaming GET that forwards Range requests
// to the upstream CDN untouched.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// Descriptor carries advisory metadata about a remote media file.
// SizeBytes is -1 when the upstream did not report a length.
type Descriptor struct {
	URL         string
	SizeBytes   int64
	ContentType string
}

// Fetcher talks to media CDNs. The probe client carries an overall
// timeout; the stream client only bounds time-to-first-header so long
// transfers are never cut off mid-body.
type Fetcher struct {
	probeClient  *http.Client
	streamClient *http.Client
	userAgent    string
	logger       logger.Logger
}

// NewFetcher creates a Fetcher. probeTimeout bounds the whole HEAD
// round trip; streamTimeout bounds only the response headers of a GET.
func NewFetcher(probeTimeout, streamTimeout time.Duration, userAgent string, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		probeClient: &http.Client{
			Timeout: probeTimeout,
		},
		streamClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: streamTimeout,
			},
		},
		userAgent: userAgent,
		logger:    log,
	}
}

// Probe issues a HEAD request for metadata. The result is advisory:
// any failure yields an empty Descriptor, never an error, so callers
// can keep going without size or type information.
func (f *Fetcher) Probe(ctx context.Context, mediaURL string) Descriptor {
	desc := Descriptor{URL: mediaURL, SizeBytes: -1}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		f.logger.DebugWithFields("media probe request build failed", map[string]interface{}{
			"error": err.Error(),
		})
		return desc
	}
	f.setHeaders(req)

	resp, err := f.probeClient.Do(req)
	if err != nil {
		f.logger.DebugWithFields("media probe failed", map[string]interface{}{
			"error": err.Error(),
		})
		return desc
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.DebugWithFields("media probe returned non-success status", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return desc
	}

	desc.SizeBytes = resp.ContentLength
	desc.ContentType = resp.Header.Get("Content-Type")
	return desc
}

// Open issues a GET for the media body. rangeHeader, when non-empty,
// is forwarded verbatim so the upstream decides between a full (200)
// and a partial (206) response. The caller owns resp.Body.
func (f *Fetcher) Open(ctx context.Context, mediaURL, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, "invalid media url", err)
	}
	f.setHeaders(req)
	req.Header.Set("Accept", "video/mp4,video/*,*/*")
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := f.streamClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "media fetch failed", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, errs.New(errs.ErrorTypeUpstream, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
	}
	return resp, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
