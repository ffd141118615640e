// Package config loads runtime settings from PT_* environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/feedback"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
	"github.com/pokethrow/pokethrow-desktop/internal/pokeapi"
	"github.com/pokethrow/pokethrow-desktop/internal/session"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
)

// AppDirName is the per-user data directory name
const AppDirName = "pokethrow-desktop"

// Config holds every setting the hosts read.
type Config struct {
	DataDir  string `env:"PT_DATA_DIR"`
	Language string `env:"PT_LANG" envDefault:"en"`
	Profile  string `env:"PT_PROFILE" envDefault:"default"`

	PokeAPIBase    string        `env:"PT_POKEAPI_BASE" envDefault:"https://pokeapi.co/api/v2"`
	PokeAPITimeout time.Duration `env:"PT_POKEAPI_TIMEOUT" envDefault:"15s"`
	PokeAPIRetries int           `env:"PT_POKEAPI_RETRIES" envDefault:"3"`
	CacheTTL       time.Duration `env:"PT_CACHE_TTL" envDefault:"168h"`
	CacheDisabled  bool          `env:"PT_CACHE_DISABLED"`

	HistoryDriver string `env:"PT_HISTORY_DRIVER" envDefault:"sqlite"`
	HistoryDSN    string `env:"PT_HISTORY_DSN"`

	APIAddr    string `env:"PT_API_ADDR" envDefault:"127.0.0.1:17890"`
	APIEnabled bool   `env:"PT_API_ENABLED" envDefault:"true"`

	TickHz          int           `env:"PT_TICK_HZ" envDefault:"60"`
	BroadcastHz     int           `env:"PT_BROADCAST_HZ" envDefault:"30"`
	MetadataTimeout time.Duration `env:"PT_METADATA_TIMEOUT" envDefault:"5s"`
	MissPolicy      string        `env:"PT_MISS_POLICY" envDefault:"retry"`
	HitPoint        string        `env:"PT_HIT_POINT" envDefault:"contact"`

	ClientSeed string `env:"PT_CLIENT_SEED"`
	Sound      bool   `env:"PT_SOUND" envDefault:"true"`
}

// Load reads the given .env files (default ".env"; missing files are
// skipped), parses the environment and validates the result. Variables
// already set in the process win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.HistoryDSN == "" && cfg.HistoryDriver == history.DriverSQLite {
		cfg.HistoryDSN = filepath.Join(cfg.DataDir, "history.db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the hosts cannot start with
func (c Config) Validate() error {
	var problems []string
	if c.TickHz <= 0 || c.TickHz > 1000 {
		problems = append(problems, fmt.Sprintf("PT_TICK_HZ must be in [1, 1000], got %d", c.TickHz))
	}
	if c.BroadcastHz <= 0 || c.BroadcastHz > c.TickHz {
		problems = append(problems, fmt.Sprintf("PT_BROADCAST_HZ must be in [1, PT_TICK_HZ], got %d", c.BroadcastHz))
	}
	if c.MetadataTimeout <= 0 {
		problems = append(problems, "PT_METADATA_TIMEOUT must be positive")
	}
	switch encounter.MissPolicy(c.MissPolicy) {
	case encounter.MissRetry, encounter.MissAdvance:
	default:
		problems = append(problems, fmt.Sprintf("PT_MISS_POLICY must be retry or advance, got %q", c.MissPolicy))
	}
	switch throw.HitPoint(c.HitPoint) {
	case throw.HitAtContact, throw.HitAtClosestApproach:
	default:
		problems = append(problems, fmt.Sprintf("PT_HIT_POINT must be contact or closest_approach, got %q", c.HitPoint))
	}
	switch c.HistoryDriver {
	case history.DriverSQLite, history.DriverPostgres:
		if strings.TrimSpace(c.HistoryDSN) == "" {
			problems = append(problems, "PT_HISTORY_DSN is required for "+c.HistoryDriver)
		}
	default:
		problems = append(problems, fmt.Sprintf("PT_HISTORY_DRIVER must be sqlite or postgres, got %q", c.HistoryDriver))
	}
	if u, err := url.Parse(c.PokeAPIBase); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("PT_POKEAPI_BASE is not an absolute URL: %q", c.PokeAPIBase))
	}
	if c.PokeAPIRetries < 0 {
		problems = append(problems, "PT_POKEAPI_RETRIES must not be negative")
	}
	if c.APIEnabled {
		if _, _, err := net.SplitHostPort(c.APIAddr); err != nil {
			problems = append(problems, fmt.Sprintf("PT_API_ADDR: %v", err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DefaultDataDir returns an OS-appropriate writable directory
func DefaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, AppDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+AppDirName)
	}
	return "."
}

// EnsureDataDir creates DataDir if needed
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("config: create data dir: %w", err)
	}
	return nil
}

// CachePath is the metadata cache file
func (c Config) CachePath() string { return filepath.Join(c.DataDir, "pokeapi-cache.db") }

// SeedFallbackPath is where seeds go when no OS keyring is available
func (c Config) SeedFallbackPath() string { return filepath.Join(c.DataDir, "seeds.json") }

// Printer returns the feedback printer for Language
func (c Config) Printer() *feedback.Printer {
	return feedback.NewPrinter(feedback.ParseTag(c.Language))
}

// Encounter returns the default scene with the configured overrides
func (c Config) Encounter() encounter.Config {
	ec := encounter.DefaultConfig()
	ec.MetadataTimeout = c.MetadataTimeout
	ec.MissPolicy = encounter.MissPolicy(c.MissPolicy)
	ec.Throw.HitPoint = throw.HitPoint(c.HitPoint)
	return ec
}

// Session returns the loop cadence
func (c Config) Session() session.Options {
	return session.Options{TickHz: c.TickHz, BroadcastHz: c.BroadcastHz}
}

// PokeAPI returns client settings without the cache, which callers open
// themselves so they can close it.
func (c Config) PokeAPI() pokeapi.Config {
	retries := c.PokeAPIRetries
	if retries == 0 {
		retries = -1
	}
	return pokeapi.Config{
		BaseURL:    c.PokeAPIBase,
		MaxRetries: retries,
		HTTPClient: &http.Client{Timeout: c.PokeAPITimeout},
		UserAgent:  AppDirName,
	}
}
