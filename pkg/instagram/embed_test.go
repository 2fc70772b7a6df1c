package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

func TestFindEmbedVideoURL(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
		found    bool
	}{
		{
			name:     "escaped url",
			html:     `<script>{"video_url":"https:\/\/cdn.example.com\/v.mp4?tag=1\u0026sig=2","other":1}</script>`,
			expected: "https://cdn.example.com/v.mp4?tag=1&sig=2",
			found:    true,
		},
		{
			name:     "plain url",
			html:     `{"video_url":"https://cdn.example.com/plain.mp4"}`,
			expected: "https://cdn.example.com/plain.mp4",
			found:    true,
		},
		{
			name:  "marker absent",
			html:  `<html><body>nothing here</body></html>`,
			found: false,
		},
		{
			name:  "unterminated value",
			html:  `{"video_url":"https://cdn.example.com/v.mp4`,
			found: false,
		},
		{
			name:  "empty value",
			html:  `{"video_url":""}`,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findEmbedVideoURL(tt.html)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEmbedExtractorRejectsURLWithoutShortcode(t *testing.T) {
	client := NewPageClient(0, "", logger.NewTestLogger())
	extractor := NewEmbedExtractor(client, logger.NewTestLogger())

	_, err := extractor.Extract(context.Background(), "https://www.instagram.com/someuser/")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))
}

func TestPageClientFetchPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("page body"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewPageClient(0, "test-agent", logger.NewTestLogger())
	ctx := context.Background()

	body, err := client.FetchPage(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "page body", body)
	assert.Equal(t, "test-agent", gotUA)

	_, err = client.FetchPage(ctx, srv.URL+"/missing")
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))

	_, err = client.FetchPage(ctx, srv.URL+"/limited")
	assert.True(t, errs.Is(err, errs.ErrorTypeRateLimit))

	_, err = client.FetchPage(ctx, srv.URL+"/boom")
	assert.True(t, errs.Is(err, errs.ErrorTypeTransient))
}
