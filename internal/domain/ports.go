package domain

import (
	"context"
	"time"
)

// RunOptions bounds one external tool invocation.
type RunOptions struct {
	Timeout        time.Duration
	MaxOutputBytes int
}

// RunResult carries the captured output of a finished invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner is the driven port for external tool invocation. A non-nil error
// covers both timeout and non-zero exit; the partial RunResult is still
// returned so stderr can be classified.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts RunOptions) (RunResult, error)
}

// CacheStats is the observability view of the cache store.
type CacheStats struct {
	Keys        int64  `json:"keys"`
	MemoryUsage string `json:"memory_usage"`
}

// Cache is the driven port for result caching. Get's bool reports whether
// the key was present and unexpired.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Stats(ctx context.Context) (CacheStats, error)
}

// Extractor is the driven port for one tool's ordered fallback chain.
type Extractor interface {
	Name() string
	Priority() int
	CanHandle(req Request) bool
	EstimatedDuration() time.Duration
	Execute(ctx context.Context, req Request) Outcome
}
