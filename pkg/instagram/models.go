package instagram

import "context"

// ExtractionResult is what resolving a content page URL produces. The
// first media URL is canonical; title and thumbnail are best-effort.
type ExtractionResult struct {
	MediaURLs []string
	Title     string
	Thumbnail string
}

// CanonicalURL returns the first media URL, or "" when there is none
func (r *ExtractionResult) CanonicalURL() string {
	if r == nil || len(r.MediaURLs) == 0 {
		return ""
	}
	return r.MediaURLs[0]
}

// Extractor turns a content page URL into direct media URLs. It is the
// boundary to an external scraping capability and may fail for reasons
// entirely outside this process's control.
type Extractor interface {
	Extract(ctx context.Context, sourceURL string) (*ExtractionResult, error)
}

// Prober answers a best-effort "is the owning account private" question.
// Implementations must default to false on any fetch failure.
type Prober interface {
	IsPrivate(ctx context.Context, sourceURL string) bool
}
