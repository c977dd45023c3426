package orchestrator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vennbeck/showrunner/core/brain"
	"github.com/vennbeck/showrunner/core/cache"
	"github.com/vennbeck/showrunner/core/config"
	"github.com/vennbeck/showrunner/core/contextstore"
	"github.com/vennbeck/showrunner/core/providers"
	"github.com/vennbeck/showrunner/core/routing"
	"github.com/vennbeck/showrunner/core/scoring"
)

const assessmentCacheTTL = time.Hour

// FromConfig assembles a fully wired orchestrator from configuration:
// providers, retrying scorer, assessment cache, and the optional brain
// and context-store collaborators. The returned close function releases
// the cache and the store.
func FromConfig(cfg config.Config, generator Generator, logger *slog.Logger) (*Orchestrator, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	primary, err := providers.NewOpenAIProvider(cfg.Providers.Primary)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: primary provider: %w", err)
	}

	var backup providers.Provider
	if cfg.BackupEnabled() {
		b, err := providers.NewAnthropicProvider(cfg.Providers.Backup)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: backup provider: %w", err)
		}
		backup = b
	}

	client := scoring.NewClient(primary, backup, cfg.Retry)

	// Cache failure downgrades to uncached scoring rather than refusing
	// to start.
	var assessmentCache cache.Cache
	ristretto, err := cache.NewRistretto(&cfg.Cache)
	if err != nil {
		logger.Warn("assessment cache unavailable, scoring uncached", "error", err)
		assessmentCache = cache.Noop{}
	} else {
		assessmentCache = ristretto
	}

	scorer := scoring.NewScorer(client,
		scoring.WithCache(assessmentCache, assessmentCacheTTL),
		scoring.WithLogger(logger),
	)

	opts := []Option{WithExecutionPolicy(cfg.Execution), WithLogger(logger)}

	if cfg.RelevanceFloor > 0 {
		opts = append(opts, WithRouter(routing.NewRouter(routing.WithFloor(cfg.RelevanceFloor))))
	}

	if cfg.BrainEnabled() {
		brainClient, err := brain.NewClient(cfg.Brain)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: brain: %w", err)
		}
		opts = append(opts, WithConsistencyChecker(brainClient))
	}

	var store *contextstore.SQLiteStore
	if cfg.ContextDBPath != "" {
		store, err = contextstore.OpenSQLite(cfg.ContextDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: context store: %w", err)
		}
		opts = append(opts, WithGatherer(contextstore.NewGatherer(store)))
	}

	o := New(generator, scorer, opts...)

	closeFn := func() error {
		if ristretto != nil {
			ristretto.Close()
		}
		if store != nil {
			return store.Close()
		}
		return nil
	}
	return o, closeFn, nil
}
