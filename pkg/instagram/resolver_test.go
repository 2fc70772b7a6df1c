package instagram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelproxy/pkg/config"
	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

type stubExtractor struct {
	calls   int
	results []extractReturn
}

type extractReturn struct {
	result *ExtractionResult
	err    error
}

func (s *stubExtractor) Extract(ctx context.Context, sourceURL string) (*ExtractionResult, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	r := s.results[idx]
	return r.result, r.err
}

type stubProber struct {
	calls   int
	private bool
}

func (s *stubProber) IsPrivate(ctx context.Context, sourceURL string) bool {
	s.calls++
	return s.private
}

func testResolverConfig() config.ResolverConfig {
	return config.ResolverConfig{
		MaxAttempts:         3,
		BackoffStep:         time.Millisecond,
		BackoffCap:          4 * time.Millisecond,
		RateLimitCooldown:   time.Millisecond,
		FirstAttemptJitter:  0,
		FallbackEnabled:     true,
		PrivateProbeEnabled: true,
	}
}

func goodResult() *ExtractionResult {
	return &ExtractionResult{MediaURLs: []string{"https://cdn.example.com/v.mp4"}}
}

func TestResolverSucceedsAfterTransientFailures(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeNetwork, "connection reset")},
		{err: errs.New(errs.ErrorTypeNetwork, "connection reset")},
		{result: goodResult()},
	}}

	r := NewResolver(primary, nil, nil, nil, testResolverConfig(), logger.NewTestLogger())
	result, err := r.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")

	require.NoError(t, err)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, "https://cdn.example.com/v.mp4", result.CanonicalURL())
}

func TestResolverPrivateShortCircuits(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypePrivate, "this account is private")},
	}}
	fallback := &stubExtractor{results: []extractReturn{{result: goodResult()}}}

	r := NewResolver(primary, fallback, nil, nil, testResolverConfig(), logger.NewTestLogger())
	_, err := r.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypePrivate))
	// No retries and no fallback for access denial
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestResolverFallsBackAfterRetriesExhausted(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeNetwork, "timeout")},
	}}
	fallback := &stubExtractor{results: []extractReturn{{result: goodResult()}}}

	r := NewResolver(primary, fallback, nil, nil, testResolverConfig(), logger.NewTestLogger())
	result, err := r.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")

	require.NoError(t, err)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, "https://cdn.example.com/v.mp4", result.CanonicalURL())
}

func TestResolverProbesPrivacyWhenFallbackFails(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeNetwork, "timeout")},
	}}
	fallback := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeUnknown, "no video url in markup")},
	}}
	prober := &stubProber{private: true}

	r := NewResolver(primary, fallback, prober, nil, testResolverConfig(), logger.NewTestLogger())
	_, err := r.Resolve(context.Background(), "https://www.instagram.com/someuser/reel/ABC123/")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypePrivate))
	assert.Equal(t, 1, prober.calls)
}

func TestResolverReportsOriginalErrorWhenProbeNegative(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeNotFound, "no media found")},
	}}
	fallback := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeUnknown, "no video url in markup")},
	}}
	prober := &stubProber{private: false}

	r := NewResolver(primary, fallback, prober, nil, testResolverConfig(), logger.NewTestLogger())
	_, err := r.Resolve(context.Background(), "https://www.instagram.com/someuser/reel/ABC123/")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
	assert.Equal(t, 1, prober.calls)
}

func TestResolverTreatsEmptyResultAsNotFound(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{result: &ExtractionResult{}},
	}}

	cfg := testResolverConfig()
	cfg.FallbackEnabled = false

	r := NewResolver(primary, nil, nil, nil, cfg, logger.NewTestLogger())
	_, err := r.Resolve(context.Background(), "https://www.instagram.com/reel/ABC123/")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}

func TestResolverHonorsContextCancellation(t *testing.T) {
	primary := &stubExtractor{results: []extractReturn{
		{err: errs.New(errs.ErrorTypeNetwork, "timeout")},
	}}

	cfg := testResolverConfig()
	cfg.BackoffStep = time.Second
	cfg.BackoffCap = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	r := NewResolver(primary, nil, nil, nil, cfg, logger.NewTestLogger())
	_, err := r.Resolve(ctx, "https://www.instagram.com/reel/ABC123/")

	require.Error(t, err)
	assert.Less(t, primary.calls, 3)
}
