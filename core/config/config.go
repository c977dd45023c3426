// Package config loads and validates the engine configuration: scoring
// providers, retry policy, caches, execution limits, and the optional
// brain and context-store collaborators.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vennbeck/showrunner/core/brain"
	"github.com/vennbeck/showrunner/core/cache"
	faults "github.com/vennbeck/showrunner/core/errors"
	"github.com/vennbeck/showrunner/core/plan"
	"github.com/vennbeck/showrunner/core/providers"
)

// Env var overrides for secrets; config files should not carry keys.
const (
	envPrimaryKey   = "SHOWRUNNER_OPENAI_API_KEY"
	envBackupKey    = "SHOWRUNNER_ANTHROPIC_API_KEY"
	envBrainKey     = "SHOWRUNNER_BRAIN_API_KEY"
	envBrainBaseURL = "SHOWRUNNER_BRAIN_URL"
)

// Providers configures the scoring providers.
type Providers struct {
	// Primary is the OpenAI-compatible scoring endpoint.
	Primary providers.OpenAIConfig `yaml:"primary"`

	// Backup is the fallback model; disabled when no API key is set.
	Backup providers.AnthropicConfig `yaml:"backup"`
}

// Config is the engine's full configuration.
type Config struct {
	Providers Providers             `yaml:"providers"`
	Retry     faults.RetryPolicy    `yaml:"retry"`
	Cache     cache.RistrettoConfig `yaml:"cache"`
	Execution plan.Policy           `yaml:"execution"`

	// Brain configures the optional knowledge service. Absent BaseURL
	// means no brain; the engine falls back to local consistency.
	Brain brain.Config `yaml:"brain"`

	// ContextDBPath is the SQLite context store. Empty means no
	// project context is gathered for prompts.
	ContextDBPath string `yaml:"context_db_path"`

	// RelevanceFloor overrides the router's default floor when set.
	RelevanceFloor float64 `yaml:"relevance_floor"`
}

// Default returns the engine defaults. The primary API key must still
// be supplied via file or environment.
func Default() Config {
	return Config{
		Providers: Providers{
			Primary: providers.DefaultOpenAIConfig(),
			Backup:  providers.DefaultAnthropicConfig(),
		},
		Retry: faults.DefaultRetryPolicy(),
		Cache: cache.RistrettoConfig{
			NumCounters: 1e6,
			MaxCost:     64 << 20,
			BufferItems: 64,
		},
		Execution: plan.DefaultPolicy(),
		Brain:     brain.DefaultConfig(),
	}
}

// Load reads a YAML config file over the defaults and applies
// environment overrides. An empty path loads defaults plus environment
// only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv(envPrimaryKey); key != "" {
		c.Providers.Primary.APIKey = key
	}
	if key := os.Getenv(envBackupKey); key != "" {
		c.Providers.Backup.APIKey = key
	}
	if key := os.Getenv(envBrainKey); key != "" {
		c.Brain.APIKey = key
	}
	if url := os.Getenv(envBrainBaseURL); url != "" {
		c.Brain.BaseURL = url
	}
}

// BackupEnabled reports whether a backup provider is configured.
func (c *Config) BackupEnabled() bool {
	return c.Providers.Backup.APIKey != ""
}

// BrainEnabled reports whether a brain service is configured.
func (c *Config) BrainEnabled() bool {
	return c.Brain.BaseURL != ""
}

// Validate checks the configuration. Optional collaborators (backup
// provider, brain, context store) are validated only when enabled.
func (c *Config) Validate() error {
	if err := c.Providers.Primary.Validate(); err != nil {
		return fmt.Errorf("config: primary provider: %w", err)
	}
	if c.BackupEnabled() {
		if err := c.Providers.Backup.Validate(); err != nil {
			return fmt.Errorf("config: backup provider: %w", err)
		}
	}
	if c.BrainEnabled() {
		if err := c.Brain.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry max_attempts must be at least 1")
	}
	if c.RelevanceFloor < 0 || c.RelevanceFloor >= 1 {
		return fmt.Errorf("config: relevance_floor must be in [0, 1)")
	}
	return nil
}
