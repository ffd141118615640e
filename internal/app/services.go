// Package app opens the long-lived services a host needs (history, metadata
// client, fairness roller) from a config.Config and wires encounters
// around them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/pokethrow/pokethrow-desktop/internal/api"
	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/config"
	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/history"
	"github.com/pokethrow/pokethrow-desktop/internal/pokeapi"
	"github.com/pokethrow/pokethrow-desktop/internal/seedvault"
)

// Services are shared by every encounter in the process.
type Services struct {
	Config  config.Config
	Logger  *log.Logger
	History *history.Store
	Cache   *pokeapi.BoltCache
	PokeAPI *pokeapi.Client
	Vault   *seedvault.Vault
	Roller  *fairness.Roller

	mu    sync.Mutex
	seeds seedvault.SeedState
}

// Options select which services Open starts.
type Options struct {
	// SkipHistory leaves History nil, for commands that never record.
	SkipHistory bool
}

// Open starts the services described by cfg. A cache that cannot be opened
// is logged and skipped; a history store that cannot be opened fails.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger, opts Options) (*Services, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[APP] ", log.LstdFlags)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	s := &Services{Config: cfg, Logger: logger}

	if !opts.SkipHistory {
		store, err := history.Open(cfg.HistoryDriver, cfg.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("app: open history: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("app: migrate history: %w", err)
		}
		s.History = store
	}

	pcfg := cfg.PokeAPI()
	pcfg.Logger = logger
	if !cfg.CacheDisabled {
		cache, err := pokeapi.OpenBoltCache(cfg.CachePath(), cfg.CacheTTL)
		if err != nil {
			logger.Printf("metadata cache disabled: %v", err)
		} else {
			s.Cache = cache
			pcfg.Cache = cache
		}
	}
	s.PokeAPI = pokeapi.NewClient(pcfg)

	s.Vault = seedvault.New(config.AppDirName, cfg.SeedFallbackPath())
	seeds, err := s.Vault.LoadOrCreate(cfg.Profile)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("app: load seeds: %w", err)
	}
	if cfg.ClientSeed != "" {
		seeds.ClientSeed = cfg.ClientSeed
	}
	roller, err := fairness.NewRoller(seeds.ServerSeed, seeds.ClientSeed, seeds.Nonce)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("app: roller: %w", err)
	}
	s.Roller = roller
	s.seeds = seeds
	return s, nil
}

// Orchestrator builds an encounter loop that rolls from the shared roller
func (s *Services) Orchestrator(port bridge.Port) (*encounter.Orchestrator, error) {
	return encounter.New(s.Config.Encounter(), encounter.Deps{
		Port:    port,
		Roller:  s.Roller,
		Printer: s.Config.Printer(),
	})
}

// API returns the local HTTP server over these services.
func (s *Services) API(token string) *api.Server {
	deps := api.Deps{
		Metadata: s.PokeAPI,
		Tuning:   s.Config.Encounter().Capture,
		Token:    token,
		Logger:   log.New(s.Logger.Writer(), "[API] ", log.LstdFlags),
	}
	if s.History != nil {
		deps.History = s.History
	}
	return api.NewServer(deps)
}

// Commitment is the public view of the current seed pair
func (s *Services) Commitment() fairness.Commitment { return s.Roller.Commitment() }

// SaveSeeds persists the roller's nonce so the stream resumes where it left off
func (s *Services) SaveSeeds() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds.Nonce = s.Roller.Nonce()
	if err := s.Vault.Save(s.Config.Profile, s.seeds); err != nil {
		return fmt.Errorf("app: save seeds: %w", err)
	}
	return nil
}

// RotateSeeds retires the server seed, revealing it, and stores a fresh one.
// An empty clientSeed keeps the current one.
func (s *Services) RotateSeeds(clientSeed string) (fairness.Reveal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fairness.NewServerSeed()
	if err != nil {
		return fairness.Reveal{}, err
	}
	rev, err := s.Roller.Rotate(next, clientSeed)
	if err != nil {
		return fairness.Reveal{}, err
	}
	s.seeds = seedvault.SeedState{ServerSeed: next, ClientSeed: s.Roller.Commitment().ClientSeed}
	if err := s.Vault.Save(s.Config.Profile, s.seeds); err != nil {
		return rev, fmt.Errorf("app: save rotated seeds: %w", err)
	}
	return rev, nil
}

// Close saves the seed nonce and releases every store
func (s *Services) Close() error {
	var errs []error
	if s.Roller != nil {
		errs = append(errs, s.SaveSeeds())
	}
	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
		s.Cache = nil
	}
	if s.History != nil {
		errs = append(errs, s.History.Close())
		s.History = nil
	}
	return errors.Join(errs...)
}
