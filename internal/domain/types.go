package domain

import (
	"encoding/json"
	"time"

	"snatch/internal/target"
)

// Request is a validated, normalized resolve target. Immutable once built.
type Request struct {
	Original   string
	Normalized string
	CacheKey   string
	Category   target.Category
}

// NewRequest normalizes raw and derives the cache key and category.
// raw must have passed target.Validate.
func NewRequest(raw string) Request {
	normalized := target.Normalize(raw)
	return Request{
		Original:   raw,
		Normalized: normalized,
		CacheKey:   target.CacheKey(normalized),
		Category:   target.Classify(normalized),
	}
}

// Outcome is the result of one extractor's Execute call. It is constructed
// once and never mutated afterwards.
type Outcome struct {
	Success     bool
	DownloadURL string
	Tool        string
	Strategy    string
	Duration    time.Duration
	Category    ErrCategory
	RawError    string
	// Attempted lists every strategy name tried, in order, including the
	// one that produced this outcome.
	Attempted []string
	Meta      map[string]any
}

// Result is the public outcome of a Resolve call.
type Result struct {
	Success     bool           `json:"success"`
	DownloadURL string         `json:"download_url,omitempty"`
	Cached      bool           `json:"cached"`
	Meta        map[string]any `json:"metadata,omitempty"`
	Category    ErrCategory    `json:"category,omitempty"`
	Message     string         `json:"error,omitempty"`
	StatusHint  int            `json:"-"`
	Details     string         `json:"details,omitempty"`
}

// DefaultTTL is how long a resolved URL stays cached.
const DefaultTTL = 20 * 24 * time.Hour

// CacheRecord is the stored form of a successful resolution.
type CacheRecord struct {
	DownloadURL string         `json:"download_url"`
	Tool        string         `json:"tool"`
	Strategy    string         `json:"strategy"`
	Original    string         `json:"original_url"`
	CachedAt    string         `json:"cached_at"`
	TTLSeconds  int            `json:"ttl_seconds"`
	Meta        map[string]any `json:"metadata,omitempty"`
}

// Encode serializes the record for storage.
func (r CacheRecord) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeRecord parses a stored cache value. Legacy entries predate the
// structured format and hold a bare URL; the boundary is parsing-success
// based: anything that does not unmarshal into a record with a download URL
// is treated as a legacy value.
func DecodeRecord(value string) CacheRecord {
	var rec CacheRecord
	if err := json.Unmarshal([]byte(value), &rec); err == nil && rec.DownloadURL != "" {
		return rec
	}
	return CacheRecord{
		DownloadURL: value,
		Tool:        "unknown",
		Strategy:    "unknown",
	}
}
