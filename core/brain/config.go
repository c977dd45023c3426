// Package brain talks to the external knowledge service ("the brain"):
// semantic search over project documents and cross-department coherence
// validation. Everything here degrades gracefully; a nil client or an
// unreachable service never fails a request on its own.
package brain

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultMaxResults = 8
)

// Config configures the brain client.
type Config struct {
	// BaseURL is the root of the brain service, e.g. "http://brain:8311".
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxResults caps semantic search results per query.
	MaxResults int `yaml:"max_results"`
}

// DefaultConfig returns client defaults. BaseURL must still be set.
func DefaultConfig() Config {
	return Config{
		Timeout:    defaultTimeout,
		MaxResults: defaultMaxResults,
	}
}

// UnmarshalYAML decodes the timeout from strings like "15s". Absent
// keys keep the receiver's current values.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		Timeout    string `yaml:"timeout"`
		MaxResults int    `yaml:"max_results"`
	}{
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		Timeout:    c.Timeout.String(),
		MaxResults: c.MaxResults,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	timeout, err := time.ParseDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("brain timeout: %w", err)
	}

	c.BaseURL = raw.BaseURL
	c.APIKey = raw.APIKey
	c.Timeout = timeout
	c.MaxResults = raw.MaxResults
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("brain: base URL required")
	}
	if c.Timeout <= 0 {
		return errors.New("brain: timeout must be positive")
	}
	if c.MaxResults <= 0 {
		return errors.New("brain: max results must be positive")
	}
	return nil
}
