package providers

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// BaseConfig contains configuration common to all providers.
type BaseConfig struct {
	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model is the model used for scoring calls.
	Model string `json:"model" yaml:"model"`

	// MaxTokens bounds the structured grading response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the default sampling temperature. Scoring keeps
	// this low; it is a grading task, not a generative one.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout bounds each outbound call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultBaseConfig returns defaults for scoring calls.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		MaxTokens:   2048,
		Temperature: 0.1,
		Timeout:     60 * time.Second,
	}
}

// Validate checks the base configuration.
func (c *BaseConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// OpenAIConfig configures the OpenAI-compatible adapter. BaseURL points
// it at any endpoint speaking the chat-completions wire format.
type OpenAIConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Organization is sent as the OpenAI-Organization header.
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
}

// DefaultOpenAIConfig returns OpenAI defaults.
func DefaultOpenAIConfig() OpenAIConfig {
	base := DefaultBaseConfig()
	base.Model = "gpt-4o-mini"
	return OpenAIConfig{BaseConfig: base}
}

// AnthropicConfig configures the Anthropic adapter used as the backup
// scoring model.
type AnthropicConfig struct {
	BaseConfig `json:",inline" yaml:",inline"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// DefaultAnthropicConfig returns Anthropic defaults.
func DefaultAnthropicConfig() AnthropicConfig {
	base := DefaultBaseConfig()
	base.Model = "claude-haiku-4-5-20251001"
	return AnthropicConfig{BaseConfig: base}
}

// rawProviderConfig is the YAML shape of a provider section. Timeout is
// a duration string; absent keys keep the seeded values.
type rawProviderConfig struct {
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	Timeout      string  `yaml:"timeout"`
	BaseURL      string  `yaml:"base_url"`
	Organization string  `yaml:"organization"`
}

func (r *rawProviderConfig) seed(base BaseConfig, baseURL, organization string) {
	r.APIKey = base.APIKey
	r.Model = base.Model
	r.MaxTokens = base.MaxTokens
	r.Temperature = base.Temperature
	r.Timeout = base.Timeout.String()
	r.BaseURL = baseURL
	r.Organization = organization
}

func (r *rawProviderConfig) base() (BaseConfig, error) {
	timeout, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return BaseConfig{}, fmt.Errorf("provider timeout: %w", err)
	}
	return BaseConfig{
		APIKey:      r.APIKey,
		Model:       r.Model,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
		Timeout:     timeout,
	}, nil
}

// UnmarshalYAML decodes the provider section, keeping receiver values
// for absent keys.
func (c *OpenAIConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw rawProviderConfig
	raw.seed(c.BaseConfig, c.BaseURL, c.Organization)
	if err := value.Decode(&raw); err != nil {
		return err
	}

	base, err := raw.base()
	if err != nil {
		return err
	}
	c.BaseConfig = base
	c.BaseURL = raw.BaseURL
	c.Organization = raw.Organization
	return nil
}

// UnmarshalYAML decodes the provider section, keeping receiver values
// for absent keys.
func (c *AnthropicConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw rawProviderConfig
	raw.seed(c.BaseConfig, c.BaseURL, "")
	if err := value.Decode(&raw); err != nil {
		return err
	}

	base, err := raw.base()
	if err != nil {
		return err
	}
	c.BaseConfig = base
	c.BaseURL = raw.BaseURL
	return nil
}
