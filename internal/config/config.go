// Package config handles TOML-based configuration with environment
// overrides. The tool argument sets, user-agent pool and timing knobs are
// configuration data, not code.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ToolsConfig names the external extraction binaries.
type ToolsConfig struct {
	YTDLPCommand     string `toml:"ytdlp_command"`
	GalleryDLCommand string `toml:"gallerydl_command"`
}

// Config holds all application configuration.
type Config struct {
	Port            int         `toml:"port"`
	DBPath          string      `toml:"db_path"`
	Secret          string      `toml:"secret"`
	CacheTTLDays    int         `toml:"cache_ttl_days"`
	BackoffBaseMs   int         `toml:"backoff_base_ms"`
	BackoffCapMs    int         `toml:"backoff_cap_ms"`
	StrategyDelayMs int         `toml:"strategy_delay_ms"`
	UserAgents      []string    `toml:"user_agents"`
	Tools           ToolsConfig `toml:"tools"`
	Debug           bool        `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:            8080,
		DBPath:          DefaultDBPath(),
		CacheTTLDays:    20,
		BackoffBaseMs:   1000,
		BackoffCapMs:    30000,
		StrategyDelayMs: 1750,
		Tools: ToolsConfig{
			YTDLPCommand:     "yt-dlp",
			GalleryDLCommand: "gallery-dl",
		},
	}
}

// DefaultDBPath returns the default cache database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "snatch", "cache.db")
}

// ConfigPath returns the XDG-compliant config file path.
func ConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "snatch", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "snatch", "config.toml"), nil
}

// Load reads the config file at path (or the default location when path is
// empty) and merges it over defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("SNATCH_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Port)
	}
	if db := os.Getenv("SNATCH_DB"); db != "" {
		c.DBPath = db
	}
	if secret := os.Getenv("SNATCH_SECRET"); secret != "" {
		c.Secret = secret
	}
	if os.Getenv("SNATCH_DEBUG") != "" {
		c.Debug = true
	}
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.CacheTTLDays < 1 {
		return fmt.Errorf("cache_ttl_days must be at least 1")
	}
	if c.BackoffBaseMs < 1 || c.BackoffCapMs < c.BackoffBaseMs {
		return fmt.Errorf("backoff_base_ms must be positive and no greater than backoff_cap_ms")
	}
	if c.Tools.YTDLPCommand == "" || c.Tools.GalleryDLCommand == "" {
		return fmt.Errorf("tool commands cannot be empty")
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// BackoffBase returns the initial backoff window.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// BackoffCap returns the maximum backoff window.
func (c *Config) BackoffCap() time.Duration {
	return time.Duration(c.BackoffCapMs) * time.Millisecond
}

// StrategyDelay returns the pause between fallback strategies.
func (c *Config) StrategyDelay() time.Duration {
	return time.Duration(c.StrategyDelayMs) * time.Millisecond
}
