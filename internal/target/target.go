// Package target validates and canonicalizes post URLs into a normalized
// form and a stable cache key.
package target

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// Category classifies a normalized target URL.
type Category string

const (
	CategoryPost      Category = "post"
	CategoryStory     Category = "story"
	CategoryHighlight Category = "highlight"
	CategoryUnknown   Category = "unknown"
)

const canonicalHost = "instagram.com"

var hosts = map[string]bool{
	"instagram.com":     true,
	"www.instagram.com": true,
	"m.instagram.com":   true,
	"instagr.am":        true,
}

var (
	postPattern  = regexp.MustCompile(`^/(p|reel|reels|tv)/([A-Za-z0-9_-]+)/?$`)
	storyPattern = regexp.MustCompile(`^/stories/([A-Za-z0-9_.-]+)(/[A-Za-z0-9_-]+)*/?$`)
)

// Validate reports whether raw is an accepted post, reel or story URL on a
// recognized host. Matching is case-insensitive on scheme and host.
func Validate(raw string) bool {
	u, ok := parse(raw)
	if !ok {
		return false
	}
	path := u.EscapedPath()
	return postPattern.MatchString(path) || storyPattern.MatchString(path)
}

// Normalize canonicalizes a valid URL: https scheme, bare host, query and
// fragment stripped, and reel/tv path variants collapsed to the /p/ form so
// that surface spellings of the same resource share one cache key. The
// resource id keeps its original case. Call Validate first; output for
// invalid input is unspecified.
func Normalize(raw string) string {
	u, ok := parse(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	if m := postPattern.FindStringSubmatch(u.EscapedPath()); m != nil {
		path = "/p/" + m[2]
	}
	return "https://" + canonicalHost + path
}

// CacheKey derives a deterministic key from a normalized URL. Recognized
// posts map to "post_<id>", two-part story paths to "story_<owner>_<id>".
// Anything else gets a hashed fallback key: uniqueness is best effort,
// determinism is exact.
func CacheKey(normalized string) string {
	segs := segments(normalized)
	switch {
	case len(segs) == 2 && segs[0] == "p":
		return "post_" + segs[1]
	case len(segs) == 3 && segs[0] == "stories" && segs[1] != "highlights":
		return "story_" + segs[1] + "_" + segs[2]
	}
	sum := sha256.Sum256([]byte(normalized))
	return "url_" + hex.EncodeToString(sum[:])[:16]
}

// Classify returns the category of a normalized URL.
func Classify(normalized string) Category {
	segs := segments(normalized)
	if len(segs) == 0 {
		return CategoryUnknown
	}
	switch segs[0] {
	case "p":
		return CategoryPost
	case "stories":
		if len(segs) > 1 && segs[1] == "highlights" {
			return CategoryHighlight
		}
		return CategoryStory
	}
	return CategoryUnknown
}

// Host returns the host of a normalized URL, used for backoff keying.
func Host(normalized string) string {
	if u, err := url.Parse(normalized); err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	return canonicalHost
}

func parse(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, false
	}
	host := strings.ToLower(u.Hostname())
	if !hosts[host] {
		return nil, false
	}
	u.Scheme = scheme
	u.Host = host
	return u, true
}

func segments(normalized string) []string {
	u, err := url.Parse(normalized)
	if err != nil {
		return nil
	}
	path := strings.Trim(u.EscapedPath(), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
