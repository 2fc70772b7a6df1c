package instagram

import (
	"context"
	"strings"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// Fallback title when the embed markup carries none
const embedTitle = "Instagram Reel"

// EmbedExtractor is the secondary extraction technique: fetch the public
// embed representation of a post and pattern-search its markup for a
// direct video URL. Coupled to Instagram's current embed format, so it
// only runs after the primary extractor has failed.
type EmbedExtractor struct {
	client *PageClient
	logger logger.Logger
}

// NewEmbedExtractor creates an embed-page extractor
func NewEmbedExtractor(client *PageClient, log logger.Logger) *EmbedExtractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &EmbedExtractor{client: client, logger: log}
}

// Extract derives the content identifier from the URL path, fetches the
// embed page and pulls the video URL out of its markup
func (e *EmbedExtractor) Extract(ctx context.Context, sourceURL string) (*ExtractionResult, error) {
	shortcode := ExtractShortcode(sourceURL)
	if shortcode == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "could not extract post id from url")
	}

	html, err := e.client.FetchPage(ctx, EmbedURL(shortcode))
	if err != nil {
		return nil, err
	}

	videoURL, ok := findEmbedVideoURL(html)
	if !ok {
		e.logger.DebugWithFields("no video url in embed markup", map[string]interface{}{
			"shortcode": shortcode,
		})
		return nil, errs.New(errs.ErrorTypeUnknown, "could not extract video url from embed page")
	}

	return &ExtractionResult{
		MediaURLs: []string{videoURL},
		Title:     embedTitle,
	}, nil
}

// findEmbedVideoURL locates the "video_url" JSON value inside embed
// markup and undoes its escaping
func findEmbedVideoURL(html string) (string, bool) {
	const marker = `"video_url":"`
	start := strings.Index(html, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)

	end := strings.IndexByte(html[start:], '"')
	if end < 0 {
		return "", false
	}

	raw := html[start : start+end]
	// The value is JSON-escaped: ampersands as \u0026, slashes as \/
	raw = strings.ReplaceAll(raw, `\u0026`, "&")
	raw = strings.ReplaceAll(raw, `\`, "")
	if raw == "" {
		return "", false
	}
	return raw, true
}

// Markers that show up in a private profile's page markup. Brittle by
// nature; the probe stays best-effort and never blocks resolution.
var privateMarkers = []string{
	`"is_private":true`,
	"This Account is Private",
}

// ProfileProber answers whether the account that owns a content URL is
// private by fetching its public profile page
type ProfileProber struct {
	client *PageClient
	logger logger.Logger
}

// NewProfileProber creates a profile privacy prober
func NewProfileProber(client *PageClient, log logger.Logger) *ProfileProber {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ProfileProber{client: client, logger: log}
}

// IsPrivate reports whether the owning account appears private. Any
// failure (no username in the URL, fetch error) yields false.
func (p *ProfileProber) IsPrivate(ctx context.Context, sourceURL string) bool {
	username := ExtractUsername(sourceURL)
	if username == "" {
		return false
	}

	html, err := p.client.FetchPage(ctx, ProfileURL(username))
	if err != nil {
		p.logger.DebugWithFields("private probe fetch failed", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return false
	}

	for _, marker := range privateMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}
