package extractor

import (
	"time"

	"snatch/internal/domain"
)

const (
	gallerydlTimeout   = 90 * time.Second
	gallerydlEstimated = 30 * time.Second
)

// NewGalleryDL builds the fallback tool's chain. Line mode takes the first
// URL passing the media heuristic; JSON mode parses each output line as an
// independent record and takes the first URL field that passes it.
func NewGalleryDL(runner domain.Runner, opts Options) *Set {
	if opts.Command == "" {
		opts.Command = "gallery-dl"
	}
	strategies := []Strategy{
		{
			Name:    "get-urls",
			Timeout: gallerydlTimeout,
			Args: func(targetURL, userAgent string) []string {
				return []string{
					"--get-urls",
					"--option", "user-agent=" + userAgent,
					targetURL,
				}
			},
			Parse: firstMediaURLLine,
		},
		{
			Name:    "dump-json",
			Timeout: gallerydlTimeout,
			Args: func(targetURL, userAgent string) []string {
				return []string{
					"--dump-json",
					"--option", "user-agent=" + userAgent,
					targetURL,
				}
			},
			Parse: firstMediaURLJSON,
		},
	}
	return newSet("gallery-dl", 2, gallerydlEstimated, strategies, runner, opts)
}
