package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// PageClient fetches public Instagram pages (embed markup, profile
// pages) with browser-like headers. Instagram serves stripped or empty
// responses to default client identifiers, so every request spoofs a
// desktop browser.
type PageClient struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewPageClient creates a page client with the given timeout and user agent
func NewPageClient(timeout time.Duration, userAgent string, log logger.Logger) *PageClient {
	if log == nil {
		log = logger.GetLogger()
	}

	return &PageClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		logger: log,
	}
}

// FetchPage performs a GET and returns the response body as a string
func (c *PageClient) FetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknown, "failed to create request", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("page request failed", map[string]interface{}{
			"url":   pageURL,
			"error": err.Error(),
		})
		return "", errs.Wrap(errs.ErrorTypeNetwork, "page request failed", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("page request completed", map[string]interface{}{
		"url":      pageURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if err := checkStatus(resp.StatusCode); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeNetwork, "failed to read page body", err)
	}

	return string(body), nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, "page not found")
	case code == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, "rate limit exceeded")
	case code >= 500:
		return errs.New(errs.ErrorTypeTransient, fmt.Sprintf("server returned status %d", code))
	default:
		return errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", code))
	}
}
