package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"snatch/internal/backoff"
	"snatch/internal/flight"
	"snatch/internal/metrics"
	"snatch/internal/target"
)

// ToolInfo describes one configured extractor for the observability surface.
type ToolInfo struct {
	Name              string `json:"name"`
	Priority          int    `json:"priority"`
	EstimatedDuration string `json:"estimated_duration"`
}

// Service orchestrates the resolve flow: validation, cache, request
// coalescing, per-domain backoff and the tool fallback chain.
type Service struct {
	cache      Cache
	extractors []Extractor
	backoff    *backoff.Tracker
	flights    flight.Group[Result]
	metrics    *metrics.Collector
	ttl        time.Duration
	log        zerolog.Logger
}

// NewService wires the orchestrator. Extractors are sorted by ascending
// priority once here; the resolve loop relies on that order.
func NewService(cache Cache, extractors []Extractor, tracker *backoff.Tracker, collector *metrics.Collector, ttl time.Duration, log zerolog.Logger) *Service {
	sorted := append([]Extractor(nil), extractors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		cache:      cache,
		extractors: sorted,
		backoff:    tracker,
		metrics:    collector,
		ttl:        ttl,
		log:        log,
	}
}

// Resolve turns a raw post URL into a direct media URL. Failures are always
// returned as a categorized Result, never as a panic or bare error.
func (s *Service) Resolve(ctx context.Context, raw string) Result {
	s.metrics.Request()

	if !target.Validate(raw) {
		s.metrics.Failure()
		return failure(ErrInvalidURL, "")
	}

	req := NewRequest(raw)
	log := s.log.With().Str("key", req.CacheKey).Logger()

	if value, ok, err := s.cache.Get(ctx, req.CacheKey); err != nil {
		log.Warn().Err(err).Msg("cache read failed, treating as miss")
	} else if ok {
		rec := DecodeRecord(value)
		s.metrics.CacheHit()
		s.metrics.Success()
		log.Info().Str("tool", rec.Tool).Msg("cache hit")
		return Result{
			Success:     true,
			DownloadURL: rec.DownloadURL,
			Cached:      true,
			Meta: map[string]any{
				"tool":      rec.Tool,
				"strategy":  rec.Strategy,
				"cached_at": rec.CachedAt,
			},
		}
	}

	result, shared := s.flights.Do(req.CacheKey, func() Result {
		return s.resolveUncached(ctx, req, log)
	})
	if shared {
		log.Debug().Msg("attached to in-flight resolution")
	}
	return result
}

// resolveUncached runs the tool chain. Exactly one invocation per cache key
// executes here at a time; concurrent callers share its result.
func (s *Service) resolveUncached(ctx context.Context, req Request, log zerolog.Logger) Result {
	domainHost := target.Host(req.Normalized)
	var last *Outcome

	for i, ex := range s.extractors {
		if !ex.CanHandle(req) {
			log.Debug().Str("tool", ex.Name()).Msg("tool does not handle target, skipping")
			continue
		}

		if err := s.backoff.Apply(ctx, domainHost); err != nil {
			log.Warn().Err(err).Msg("cancelled while waiting out backoff")
			break
		}

		outcome := s.execute(ctx, ex, req)
		s.recordAttempts(ex.Name(), outcome)

		if outcome.Success {
			s.backoff.RecordSuccess(domainHost)
			s.persist(ctx, req, outcome, log)
			s.metrics.Success()
			log.Info().
				Str("tool", outcome.Tool).
				Str("strategy", outcome.Strategy).
				Dur("duration", outcome.Duration).
				Msg("resolved")
			return Result{
				Success:     true,
				DownloadURL: outcome.DownloadURL,
				Cached:      false,
				Meta: map[string]any{
					"tool":        outcome.Tool,
					"strategy":    outcome.Strategy,
					"duration_ms": outcome.Duration.Milliseconds(),
					"tool_index":  i,
				},
			}
		}

		// Only capacity-shaped failures feed backoff; a missing post or a
		// bad login says nothing about the domain's load.
		if outcome.Category == ErrRateLimit {
			s.backoff.RecordFailure(domainHost, string(outcome.Category))
		}
		last = &outcome
		log.Warn().
			Str("tool", ex.Name()).
			Str("category", string(outcome.Category)).
			Msg("tool exhausted, trying next")
	}

	s.metrics.Failure()
	if last == nil {
		return failure(ErrUnknown, "no extraction tool accepted the target")
	}
	return failure(last.Category, last.RawError)
}

// execute guards one extractor call: a panicking tool must not abort
// evaluation of the remaining tools.
func (s *Service) execute(ctx context.Context, ex Extractor, req Request) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			text := fmt.Sprintf("extractor %s panicked: %v", ex.Name(), r)
			s.log.Error().Str("tool", ex.Name()).Msg(text)
			outcome = Outcome{
				Tool:     ex.Name(),
				Category: Classify(text),
				RawError: Truncate(text),
			}
		}
	}()
	return ex.Execute(ctx, req)
}

func (s *Service) recordAttempts(tool string, outcome Outcome) {
	for i, name := range outcome.Attempted {
		lastAttempt := i == len(outcome.Attempted)-1
		s.metrics.Strategy(tool+"/"+name, lastAttempt && outcome.Success)
	}
}

func (s *Service) persist(ctx context.Context, req Request, outcome Outcome, log zerolog.Logger) {
	rec := CacheRecord{
		DownloadURL: outcome.DownloadURL,
		Tool:        outcome.Tool,
		Strategy:    outcome.Strategy,
		Original:    req.Original,
		CachedAt:    time.Now().UTC().Format(time.RFC3339),
		TTLSeconds:  int(s.ttl.Seconds()),
		Meta:        outcome.Meta,
	}
	value, err := rec.Encode()
	if err != nil {
		log.Warn().Err(err).Msg("cache record encode failed")
		return
	}
	if err := s.cache.Set(ctx, req.CacheKey, value, s.ttl); err != nil {
		log.Warn().Err(err).Msg("cache write failed")
	}
}

// Tools lists the configured extractors in attempt order.
func (s *Service) Tools() []ToolInfo {
	infos := make([]ToolInfo, 0, len(s.extractors))
	for _, ex := range s.extractors {
		infos = append(infos, ToolInfo{
			Name:              ex.Name(),
			Priority:          ex.Priority(),
			EstimatedDuration: ex.EstimatedDuration().String(),
		})
	}
	return infos
}

// BackoffSnapshot exposes current per-domain backoff state.
func (s *Service) BackoffSnapshot() []backoff.DomainState {
	return s.backoff.Snapshot()
}

// MetricsSnapshot exposes cumulative counters.
func (s *Service) MetricsSnapshot() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// CacheStats passes through the store's observability query.
func (s *Service) CacheStats(ctx context.Context) (CacheStats, error) {
	return s.cache.Stats(ctx)
}

func failure(category ErrCategory, details string) Result {
	return Result{
		Category:   category,
		Message:    category.UserMessage(),
		StatusHint: category.StatusHint(),
		Details:    details,
	}
}
