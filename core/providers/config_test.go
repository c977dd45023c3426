package providers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vennbeck/showrunner/core/providers"
)

func TestBaseConfigValidate(t *testing.T) {
	cfg := providers.DefaultBaseConfig()
	cfg.APIKey = "sk-test"
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.APIKey = ""
	assert.Error(t, missing.Validate())

	hot := cfg
	hot.Temperature = 3.0
	assert.Error(t, hot.Validate())

	empty := cfg
	empty.MaxTokens = 0
	assert.Error(t, empty.Validate())
}

func TestDefaultsFavorDeterminism(t *testing.T) {
	assert.LessOrEqual(t, providers.DefaultOpenAIConfig().Temperature, 0.2)
	assert.LessOrEqual(t, providers.DefaultAnthropicConfig().Temperature, 0.2)
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := providers.NewOpenAIProvider(providers.OpenAIConfig{})
	assert.Error(t, err)
}

func TestNewAnthropicProviderRequiresKey(t *testing.T) {
	_, err := providers.NewAnthropicProvider(providers.AnthropicConfig{})
	assert.Error(t, err)
}

func TestUsageAdd(t *testing.T) {
	total := providers.Usage{}
	total.Add(providers.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120})
	total.Add(providers.Usage{InputTokens: 50, OutputTokens: 10, TotalTokens: 60})

	assert.Equal(t, 150, total.InputTokens)
	assert.Equal(t, 30, total.OutputTokens)
	assert.Equal(t, 180, total.TotalTokens)
}
