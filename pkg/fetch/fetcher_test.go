package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(2*time.Second, 2*time.Second, "test-agent", logger.NewTestLogger())
}

func TestProbeReportsSizeAndType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "5000")
	}))
	defer srv.Close()

	desc := newTestFetcher().Probe(context.Background(), srv.URL)

	assert.Equal(t, srv.URL, desc.URL)
	assert.Equal(t, int64(5000), desc.SizeBytes)
	assert.Equal(t, "video/mp4", desc.ContentType)
}

func TestProbeSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher()

	desc := f.Probe(context.Background(), srv.URL)
	assert.Equal(t, int64(-1), desc.SizeBytes)
	assert.Empty(t, desc.ContentType)

	// Unreachable host is equally non-fatal
	desc = f.Probe(context.Background(), "http://127.0.0.1:1/nope")
	assert.Equal(t, int64(-1), desc.SizeBytes)
}

func TestOpenForwardsRangeHeader(t *testing.T) {
	body := []byte("0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng := r.Header.Get("Range")
		require.Equal(t, "bytes=2-5", rng)
		w.Header().Set("Content-Range", "bytes 2-5/10")
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[2:6])
	}))
	defer srv.Close()

	resp, err := newTestFetcher().Open(context.Background(), srv.URL, "bytes=2-5")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 2-5/10", resp.Header.Get("Content-Range"))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(got))
}

func TestOpenWholeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Range"))
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("full body"))
	}))
	defer srv.Close()

	resp, err := newTestFetcher().Open(context.Background(), srv.URL, "")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "full body", string(got))
}

func TestOpenRejectsUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher()

	_, err := f.Open(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeUpstream))

	_, err = f.Open(context.Background(), "http://127.0.0.1:1/nope", "")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork))
}
