package extractor

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

var urlLine = regexp.MustCompile(`^https?://\S+$`)

var mediaExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".webm": true,
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

var cdnMarkers = []string{"cdninstagram", "fbcdn", "scontent"}

// lastURLLine returns the last stdout line that looks like an http(s) URL.
// yt-dlp emits the most specific format last when several are printed.
func lastURLLine(stdout string) string {
	var last string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if urlLine.MatchString(line) {
			last = line
		}
	}
	return last
}

// firstMediaURLLine returns the first URL line that also passes the media
// content heuristic.
func firstMediaURLLine(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if urlLine.MatchString(line) && isMediaURL(line) {
			return line
		}
	}
	return ""
}

// firstMediaURLJSON parses each stdout line as an independent JSON record,
// skipping unparseable lines, and returns the first URL-bearing field that
// passes the media heuristic.
func firstMediaURLJSON(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		for _, field := range []string{"url", "video_url", "display_url"} {
			if v, ok := rec[field].(string); ok && urlLine.MatchString(v) && isMediaURL(v) {
				return v
			}
		}
	}
	return ""
}

// isMediaURL reports whether u looks like direct media: a known file
// extension on the path, or a platform CDN host marker.
func isMediaURL(u string) bool {
	lower := strings.ToLower(u)
	for _, marker := range cdnMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	parsed, err := url.Parse(lower)
	if err != nil {
		return false
	}
	path := parsed.EscapedPath()
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return mediaExtensions[path[idx:]]
	}
	return false
}
