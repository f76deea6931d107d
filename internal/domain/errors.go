package domain

import (
	"net/http"
	"strings"
)

// ErrCategory is a stable failure category, used both for control flow and
// for the HTTP status mapping.
type ErrCategory string

const (
	ErrInvalidURL     ErrCategory = "invalid_url"
	ErrRateLimit      ErrCategory = "rate_limit"
	ErrAuthentication ErrCategory = "authentication"
	ErrNotFound       ErrCategory = "not_found"
	ErrTimeout        ErrCategory = "timeout"
	ErrUnknown        ErrCategory = "unknown"
)

// maxRawError bounds how much tool stderr ends up in diagnostic metadata.
const maxRawError = 500

// Classify maps combined error and stderr text to a category by
// case-insensitive substring inspection. Heuristic by nature; every strategy
// and the orchestrator go through this one routine so categories stay
// consistent end to end.
func Classify(text string) ErrCategory {
	t := strings.ToLower(text)
	switch {
	case contains(t, "429", "rate limit", "rate-limit", "too many requests", "throttl"):
		return ErrRateLimit
	case contains(t, "login required", "login_required", "authentication", "unauthorized", "403", "forbidden", "cookies"):
		return ErrAuthentication
	case contains(t, "404", "not found", "does not exist", "no longer available", "removed"):
		return ErrNotFound
	case contains(t, "timed out", "timeout", "deadline exceeded"):
		return ErrTimeout
	}
	return ErrUnknown
}

func contains(text string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// StatusHint maps a category to the HTTP status a serving layer should use.
func (c ErrCategory) StatusHint() int {
	switch c {
	case ErrInvalidURL:
		return http.StatusBadRequest
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrAuthentication:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrTimeout:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// UserMessage is the human-readable message shown for a category.
func (c ErrCategory) UserMessage() string {
	switch c {
	case ErrInvalidURL:
		return "not a recognized post, reel or story URL"
	case ErrRateLimit:
		return "the source is rate limiting requests, try again later"
	case ErrAuthentication:
		return "the post requires authentication to access"
	case ErrNotFound:
		return "the post was not found or has been removed"
	case ErrTimeout:
		return "extraction timed out"
	}
	return "extraction failed"
}

// Truncate bounds raw tool output for inclusion in diagnostics.
func Truncate(s string) string {
	if len(s) <= maxRawError {
		return s
	}
	return s[:maxRawError] + "..."
}
