package extractor

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"snatch/internal/domain"
)

type call struct {
	command string
	args    []string
}

type step struct {
	result domain.RunResult
	err    error
}

// scriptRunner replays canned results in order and records every call.
type scriptRunner struct {
	mu    sync.Mutex
	steps []step
	calls []call
}

func (r *scriptRunner) Run(ctx context.Context, name string, args []string, opts domain.RunOptions) (domain.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{command: name, args: args})
	if len(r.steps) == 0 {
		return domain.RunResult{}, errors.New("script exhausted")
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return s.result, s.err
}

func testOpts(runner *scriptRunner) Options {
	return Options{
		Delay:  time.Millisecond,
		Rand:   rand.New(rand.NewSource(1)),
		Logger: zerolog.Nop(),
	}
}

func req() domain.Request {
	return domain.NewRequest("https://instagram.com/p/ABC123/")
}

func TestExecuteFirstStrategyWins(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{result: domain.RunResult{Stdout: "https://cdn.example/video.mp4\n"}},
	}}
	set := NewYTDLP(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if !outcome.Success {
		t.Fatalf("Execute() failed: %+v", outcome)
	}
	if outcome.DownloadURL != "https://cdn.example/video.mp4" {
		t.Errorf("DownloadURL = %q", outcome.DownloadURL)
	}
	if outcome.Tool != "yt-dlp" || outcome.Strategy != "get-url" {
		t.Errorf("Tool/Strategy = %q/%q", outcome.Tool, outcome.Strategy)
	}
	if len(r.calls) != 1 {
		t.Errorf("runner called %d times, want 1 (no further strategies after success)", len(r.calls))
	}
}

// Spec scenario: first strategy times out, second returns a URL; the
// outcome carries the second strategy's name.
func TestExecuteFallsBackAfterTimeout(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{err: errors.New("yt-dlp: command timed out after 120s")},
		{result: domain.RunResult{Stdout: "https://cdn.example/video.mp4\n"}},
	}}
	set := NewYTDLP(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if !outcome.Success {
		t.Fatalf("Execute() failed: %+v", outcome)
	}
	if outcome.Strategy != "format-best" {
		t.Errorf("Strategy = %q, want format-best", outcome.Strategy)
	}
	if want := []string{"get-url", "format-best"}; !slices.Equal(outcome.Attempted, want) {
		t.Errorf("Attempted = %v, want %v", outcome.Attempted, want)
	}
}

// One user agent is picked per Execute call and reused across that call's
// strategies.
func TestExecuteUserAgentConsistentAcrossStrategies(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{err: errors.New("boom")},
		{err: errors.New("boom")},
		{result: domain.RunResult{Stdout: "https://cdn.example/video.mp4\n"}},
	}}
	set := NewYTDLP(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if !outcome.Success {
		t.Fatalf("Execute() failed: %+v", outcome)
	}

	agents := make(map[string]bool)
	for _, c := range r.calls {
		for i, a := range c.args {
			if a == "--user-agent" && i+1 < len(c.args) {
				agents[c.args[i+1]] = true
			}
		}
	}
	if len(agents) != 1 {
		t.Errorf("saw %d distinct user agents across one call's strategies, want 1", len(agents))
	}
}

func TestExecuteExhaustionClassifiesLastError(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{err: errors.New("yt-dlp failed: network unreachable")},
		{err: errors.New("yt-dlp failed: connection reset")},
		{err: errors.New("HTTP Error 429: Too Many Requests"), result: domain.RunResult{Stderr: "rate limit"}},
	}}
	set := NewYTDLP(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if outcome.Success {
		t.Fatal("Execute() should fail when every strategy fails")
	}
	if outcome.Category != domain.ErrRateLimit {
		t.Errorf("Category = %q, want rate_limit (from the last error)", outcome.Category)
	}
	if want := []string{"get-url", "format-best", "no-check-certificates"}; !slices.Equal(outcome.Attempted, want) {
		t.Errorf("Attempted = %v, want %v", outcome.Attempted, want)
	}
	names, ok := outcome.Meta["attempted_strategies"].([]string)
	if !ok || len(names) != 3 {
		t.Errorf("Meta attempted_strategies = %v", outcome.Meta["attempted_strategies"])
	}
}

func TestExecuteSuccessExitButNoUsableURL(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{result: domain.RunResult{Stdout: "[info] nothing extracted\n"}},
		{result: domain.RunResult{Stdout: "https://cdn.example/video.mp4\n"}},
	}}
	set := NewYTDLP(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if !outcome.Success {
		t.Fatalf("Execute() failed: %+v", outcome)
	}
	if outcome.Strategy != "format-best" {
		t.Errorf("Strategy = %q, want the second strategy", outcome.Strategy)
	}
}

func TestGalleryDLLineModeHeuristic(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{result: domain.RunResult{Stdout: "https://example.com/post\nhttps://cdn.example/img.jpg\n"}},
	}}
	set := NewGalleryDL(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if !outcome.Success {
		t.Fatalf("Execute() failed: %+v", outcome)
	}
	if outcome.DownloadURL != "https://cdn.example/img.jpg" {
		t.Errorf("DownloadURL = %q, want the first media-looking line", outcome.DownloadURL)
	}
	if outcome.Tool != "gallery-dl" || outcome.Strategy != "get-urls" {
		t.Errorf("Tool/Strategy = %q/%q", outcome.Tool, outcome.Strategy)
	}
}

func TestGalleryDLJSONMode(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{err: errors.New("gallery-dl failed: extraction error")},
		{result: domain.RunResult{Stdout: `{"url":"https://cdn.example/clip.mp4"}` + "\n"}},
	}}
	set := NewGalleryDL(r, testOpts(r))

	outcome := set.Execute(context.Background(), req())
	if !outcome.Success {
		t.Fatalf("Execute() failed: %+v", outcome)
	}
	if outcome.Strategy != "dump-json" {
		t.Errorf("Strategy = %q, want dump-json", outcome.Strategy)
	}
}

func TestExecuteCancelledBetweenStrategies(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{err: errors.New("boom")},
	}}
	opts := testOpts(r)
	opts.Delay = 10 * time.Second
	set := NewYTDLP(r, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome := set.Execute(ctx, req())
	if outcome.Success {
		t.Fatal("Execute() should fail when cancelled")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Execute() did not honor cancellation during inter-strategy delay")
	}
}

func TestCanHandle(t *testing.T) {
	set := NewYTDLP(&scriptRunner{}, testOpts(nil))
	if !set.CanHandle(req()) {
		t.Error("CanHandle should accept a normalized post URL")
	}
}

func TestPriorities(t *testing.T) {
	yt := NewYTDLP(&scriptRunner{}, testOpts(nil))
	gd := NewGalleryDL(&scriptRunner{}, testOpts(nil))
	if yt.Priority() >= gd.Priority() {
		t.Errorf("yt-dlp priority %d should sort before gallery-dl %d", yt.Priority(), gd.Priority())
	}
	if yt.EstimatedDuration() <= 0 || gd.EstimatedDuration() <= 0 {
		t.Error("estimated durations should be positive hints")
	}
}

func TestTargetURLPassedToTool(t *testing.T) {
	r := &scriptRunner{steps: []step{
		{result: domain.RunResult{Stdout: "https://cdn.example/video.mp4\n"}},
	}}
	set := NewYTDLP(r, testOpts(r))
	set.Execute(context.Background(), req())

	args := strings.Join(r.calls[0].args, " ")
	if !strings.Contains(args, "https://instagram.com/p/ABC123") {
		t.Errorf("tool args %q missing normalized target", args)
	}
}
