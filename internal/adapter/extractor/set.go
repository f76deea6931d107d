// Package extractor implements the per-tool fallback chains that turn a
// normalized post URL into a direct media URL by shelling out to external
// extraction tools.
package extractor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"snatch/internal/domain"
	"snatch/internal/target"
)

// interStrategyDelay is the pause between consecutive strategies of one
// set. Not applied after the last strategy.
const interStrategyDelay = 1750 * time.Millisecond

var defaultUserAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (Version/17.1 Safari/605.1.15)",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
}

// Strategy is one attempt pattern for a tool: specific arguments plus an
// output parser. Parse returns "" when the output holds no usable URL.
type Strategy struct {
	Name    string
	Timeout time.Duration
	Args    func(targetURL, userAgent string) []string
	Parse   func(stdout string) string
}

// Options configures a Set.
type Options struct {
	// Command overrides the tool binary name.
	Command string
	// UserAgents overrides the rotation pool.
	UserAgents []string
	// Delay overrides the inter-strategy pause.
	Delay time.Duration
	// Rand is the randomness source for user-agent rotation; seedable so
	// tests stay deterministic. Defaults to a time-seeded source.
	Rand   *rand.Rand
	Logger zerolog.Logger
}

// Set is the ordered fallback chain for one external tool. Strategies run
// strictly in order; the first one producing a URL wins.
type Set struct {
	tool       string
	command    string
	priority   int
	estimated  time.Duration
	strategies []Strategy
	userAgents []string
	delay      time.Duration
	runner     domain.Runner
	maxOutput  int

	mu  sync.Mutex
	rng *rand.Rand
	log zerolog.Logger
}

func newSet(tool string, priority int, estimated time.Duration, strategies []Strategy, runner domain.Runner, opts Options) *Set {
	s := &Set{
		tool:       tool,
		command:    opts.Command,
		priority:   priority,
		estimated:  estimated,
		strategies: strategies,
		userAgents: opts.UserAgents,
		delay:      opts.Delay,
		runner:     runner,
		maxOutput:  10 * 1024 * 1024,
		rng:        opts.Rand,
		log:        opts.Logger.With().Str("tool", tool).Logger(),
	}
	if s.command == "" {
		s.command = tool
	}
	if len(s.userAgents) == 0 {
		s.userAgents = defaultUserAgents
	}
	if s.delay == 0 {
		s.delay = interStrategyDelay
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Name returns the tool name.
func (s *Set) Name() string { return s.tool }

// Priority returns the tool-level ordering, lower tried first.
func (s *Set) Priority() int { return s.priority }

// EstimatedDuration is a scheduling hint only, not enforced.
func (s *Set) EstimatedDuration() time.Duration { return s.estimated }

// CanHandle reports whether the target's host is one this tool extracts from.
func (s *Set) CanHandle(req domain.Request) bool {
	host := target.Host(req.Normalized)
	return host == "instagram.com" || host == "instagr.am"
}

// Execute runs the chain. One user agent is picked per call and reused
// across this call's strategies so the client identity stays consistent
// against the same tool. The first strategy yielding a URL returns
// immediately; exhaustion returns a failure classified from the last error.
func (s *Set) Execute(ctx context.Context, req domain.Request) domain.Outcome {
	agent := s.pickAgent()
	attempted := make([]string, 0, len(s.strategies))
	lastErr := "no strategies configured"

	for i, st := range s.strategies {
		attempted = append(attempted, st.Name)
		start := time.Now()
		res, err := s.runner.Run(ctx, s.command, st.Args(req.Normalized, agent), domain.RunOptions{
			Timeout:        st.Timeout,
			MaxOutputBytes: s.maxOutput,
		})
		elapsed := time.Since(start)

		if err == nil {
			if u := st.Parse(res.Stdout); u != "" {
				s.log.Info().
					Str("strategy", st.Name).
					Dur("duration", elapsed).
					Msg("extraction succeeded")
				return domain.Outcome{
					Success:     true,
					DownloadURL: u,
					Tool:        s.tool,
					Strategy:    st.Name,
					Duration:    elapsed,
					Attempted:   attempted,
					Meta:        map[string]any{"user_agent": agent},
				}
			}
			lastErr = "no usable url in " + s.command + " output"
			s.log.Debug().Str("strategy", st.Name).Msg("no usable url in output")
		} else {
			lastErr = err.Error() + "\n" + res.Stderr
			s.log.Debug().Str("strategy", st.Name).Err(err).Msg("strategy failed")
		}

		if i < len(s.strategies)-1 {
			if err := sleep(ctx, s.delay); err != nil {
				lastErr = lastErr + "\n" + err.Error()
				break
			}
		}
	}

	return domain.Outcome{
		Tool:      s.tool,
		Category:  domain.Classify(lastErr),
		RawError:  domain.Truncate(lastErr),
		Attempted: attempted,
		Meta: map[string]any{
			"user_agent":           agent,
			"attempted_strategies": append([]string(nil), attempted...),
		},
	}
}

func (s *Set) pickAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgents[s.rng.Intn(len(s.userAgents))]
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
