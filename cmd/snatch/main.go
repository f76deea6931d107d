// Command snatch resolves social post URLs to direct media URLs by
// orchestrating external extraction tools with caching and backoff.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"snatch/internal/adapter/extractor"
	"snatch/internal/adapter/runner"
	"snatch/internal/adapter/store"
	"snatch/internal/backoff"
	"snatch/internal/config"
	"snatch/internal/domain"
	"snatch/internal/metrics"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	flagConfig string
	flagPort   int
	flagDB     string
	flagDebug  bool
)

var cfg *config.Config
var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "snatch",
	Short: "Resolve post URLs to direct media URLs",
	Long: `Snatch resolves a social post, reel or story URL to a direct media URL
by running yt-dlp and gallery-dl with multi-strategy fallback, per-domain
backoff and a TTL cache.`,
	PersistentPreRunE: setup,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: XDG config dir)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "HTTP server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Cache database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration (defaults < .env < config file < env < flags)
// and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagDebug {
		cfg.Debug = true
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	return nil
}

// buildService wires the resolver: cache store, runner, tool chains,
// backoff and metrics. The returned closer releases the store.
func buildService() (*domain.Service, func() error, error) {
	cache, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache store: %w", err)
	}

	run := runner.New()
	opts := extractor.Options{
		UserAgents: cfg.UserAgents,
		Delay:      cfg.StrategyDelay(),
		Logger:     logger,
	}
	ytOpts := opts
	ytOpts.Command = cfg.Tools.YTDLPCommand
	gdOpts := opts
	gdOpts.Command = cfg.Tools.GalleryDLCommand

	extractors := []domain.Extractor{
		extractor.NewYTDLP(run, ytOpts),
		extractor.NewGalleryDL(run, gdOpts),
	}

	svc := domain.NewService(
		cache,
		extractors,
		backoff.New(cfg.BackoffBase(), cfg.BackoffCap()),
		metrics.New(),
		cfg.CacheTTL(),
		logger,
	)
	return svc, cache.Close, nil
}
