package extractor

import (
	"time"

	"snatch/internal/domain"
)

const (
	ytdlpTimeout   = 120 * time.Second
	ytdlpEstimated = 20 * time.Second
)

// NewYTDLP builds the primary tool's chain. All strategies print resolved
// URLs line by line; the last line is the most specific format yt-dlp
// settled on.
func NewYTDLP(runner domain.Runner, opts Options) *Set {
	if opts.Command == "" {
		opts.Command = "yt-dlp"
	}
	strategies := []Strategy{
		{
			Name:    "get-url",
			Timeout: ytdlpTimeout,
			Args: func(targetURL, userAgent string) []string {
				return []string{
					"--no-warnings", "--no-playlist", "--get-url",
					"--user-agent", userAgent,
					targetURL,
				}
			},
			Parse: lastURLLine,
		},
		{
			Name:    "format-best",
			Timeout: ytdlpTimeout,
			Args: func(targetURL, userAgent string) []string {
				return []string{
					"--no-warnings", "--no-playlist", "-f", "best", "--get-url",
					"--user-agent", userAgent,
					targetURL,
				}
			},
			Parse: lastURLLine,
		},
		{
			Name:    "no-check-certificates",
			Timeout: ytdlpTimeout,
			Args: func(targetURL, userAgent string) []string {
				return []string{
					"--no-warnings", "--no-playlist", "--no-check-certificates", "--get-url",
					"--user-agent", userAgent,
					targetURL,
				}
			},
			Parse: lastURLLine,
		},
	}
	return newSet("yt-dlp", 1, ytdlpEstimated, strategies, runner, opts)
}
