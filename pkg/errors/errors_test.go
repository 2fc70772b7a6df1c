package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"private account", errors.New("This account is Private"), ErrorTypePrivate},
		{"rate limited", errors.New("upstream said: too many requests"), ErrorTypeRateLimit},
		{"status 429", errors.New("unexpected status 429"), ErrorTypeRateLimit},
		{"not found", errors.New("post not found"), ErrorTypeNotFound},
		{"deleted content", errors.New("this content is unavailable"), ErrorTypeNotFound},
		{"timeout", errors.New("context deadline exceeded (Client.Timeout exceeded)... timeout"), ErrorTypeNetwork},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeNetwork},
		{"temporary", errors.New("extraction temporarily broken"), ErrorTypeTransient},
		{"anything else", errors.New("mystery failure"), ErrorTypeUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Classify(test.err)
			if got.Type != test.expected {
				t.Errorf("Classify(%q) = %s, want %s", test.err, got.Type, test.expected)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestClassifyPreservesTag(t *testing.T) {
	// An already-tagged error wrapped in more context must keep its tag,
	// even if the message would classify differently.
	inner := New(ErrorTypePrivate, "profile requires follow approval")
	wrapped := fmt.Errorf("resolving: %w", inner)

	got := Classify(wrapped)
	if got.Type != ErrorTypePrivate {
		t.Errorf("expected private tag to survive wrapping, got %s", got.Type)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeTransient}
	for _, typ := range retryable {
		if !IsRetryable(typ) {
			t.Errorf("expected %s to be retryable", typ)
		}
	}

	terminal := []ErrorType{ErrorTypePrivate, ErrorTypeNotFound, ErrorTypeValidation, ErrorTypeUnknown}
	for _, typ := range terminal {
		if IsRetryable(typ) {
			t.Errorf("expected %s to not be retryable", typ)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{New(ErrorTypeValidation, "bad url"), http.StatusBadRequest},
		{New(ErrorTypePrivate, "private"), http.StatusForbidden},
		{New(ErrorTypeNotFound, "gone"), http.StatusBadRequest},
		{New(ErrorTypeTransient, "flaky"), http.StatusBadRequest},
		// Unmatched extraction failures classify as Unknown and still
		// report as a client-side resolution failure
		{New(ErrorTypeUnknown, "mystery extractor output"), http.StatusBadRequest},
		{errors.New("untagged"), http.StatusBadRequest},
		{New(ErrorTypeTransform, "ffmpeg exploded"), http.StatusInternalServerError},
		{New(ErrorTypeStorage, "disk full"), http.StatusInternalServerError},
	}

	for _, test := range tests {
		if got := HTTPStatus(test.err); got != test.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", test.err, got, test.status)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrorTypeNetwork, "fetch failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to its cause")
	}
	if TypeOf(err) != ErrorTypeNetwork {
		t.Errorf("TypeOf = %s, want network", TypeOf(err))
	}
}
