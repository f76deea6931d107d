package domain

import (
	"net/http"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ErrCategory
	}{
		{"http 429", "ERROR: HTTP Error 429: Too Many Requests", ErrRateLimit},
		{"rate limit text", "Instagram rate limit reached", ErrRateLimit},
		{"throttled", "request was throttled by the server", ErrRateLimit},
		{"login required", "ERROR: login required to access this content", ErrAuthentication},
		{"cookies", "use --cookies to provide account credentials", ErrAuthentication},
		{"forbidden", "HTTP Error 403: Forbidden", ErrAuthentication},
		{"http 404", "ERROR: HTTP Error 404: Not Found", ErrNotFound},
		{"deleted", "this post does not exist", ErrNotFound},
		{"timeout", "yt-dlp: command timed out after 120s", ErrTimeout},
		{"deadline", "context deadline exceeded", ErrTimeout},
		{"mixed case", "Rate Limit Exceeded", ErrRateLimit},
		{"nothing matches", "segmentation fault", ErrUnknown},
		{"empty", "", ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestStatusHint(t *testing.T) {
	tests := []struct {
		category ErrCategory
		want     int
	}{
		{ErrInvalidURL, http.StatusBadRequest},
		{ErrRateLimit, http.StatusTooManyRequests},
		{ErrAuthentication, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrTimeout, http.StatusRequestTimeout},
		{ErrUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.category.StatusHint(); got != tt.want {
			t.Errorf("%s.StatusHint() = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	short := "short error"
	if got := Truncate(short); got != short {
		t.Errorf("Truncate(%q) = %q", short, got)
	}

	long := strings.Repeat("x", maxRawError+100)
	got := Truncate(long)
	if len(got) != maxRawError+len("...") {
		t.Errorf("Truncate length = %d, want %d", len(got), maxRawError+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("Truncate should mark elision")
	}
}
