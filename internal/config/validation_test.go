package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a minimal config that passes validation.
func validConfig() *Config {
	return &Config{
		Provider:      ProviderOpenAI,
		ModelName:     "gpt-4o-mini",
		Temperature:   0.1,
		MaxTokens:     1024,
		OpenAIKey:     "sk-test",
		EmbedderModel: DefaultOpenAIEmbedder,
		PersistDir:    "/tmp/lore-index",
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_NilConfig(t *testing.T) {
	var c *Config
	assert.ErrorIs(t, c.Validate(), ErrConfigNil)
}

func TestValidate_UnknownProvider(t *testing.T) {
	c := validConfig()
	c.Provider = "anthropic"

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidProvider)
	// The message must name the invalid value and both valid options.
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "ollama")
}

func TestValidate_OpenAIRequiresKey(t *testing.T) {
	c := validConfig()
	c.OpenAIKey = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingAPIKey)
}

func TestValidate_OllamaFields(t *testing.T) {
	base := func() *Config {
		c := validConfig()
		c.Provider = ProviderOllama
		c.OllamaHost = "http://localhost:11434"
		c.OllamaModel = "llama3.2"
		c.OllamaTimeoutSec = 120
		c.OllamaContextWindow = 8192
		c.EmbedderModel = DefaultOllamaEmbedder
		return c
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty host", func(c *Config) { c.OllamaHost = "" }, ErrInvalidOllamaHost},
		{"malformed host", func(c *Config) { c.OllamaHost = "not a url" }, ErrInvalidOllamaHost},
		{"empty model", func(c *Config) { c.OllamaModel = "" }, ErrInvalidModelName},
		{"zero timeout", func(c *Config) { c.OllamaTimeoutSec = 0 }, ErrInvalidOllamaTimeout},
		{"tiny context window", func(c *Config) { c.OllamaContextWindow = 128 }, ErrInvalidContextWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), tt.wantErr)
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	c := validConfig()
	c.Temperature = 2.5
	assert.ErrorIs(t, c.Validate(), ErrInvalidTemperature)

	c = validConfig()
	c.MaxTokens = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidMaxTokens)

	c = validConfig()
	c.EmbedderModel = ""
	assert.ErrorIs(t, c.Validate(), ErrInvalidEmbedderModel)

	c = validConfig()
	c.PersistDir = ""
	assert.ErrorIs(t, c.Validate(), ErrInvalidPersistDir)
}

func TestValidateIngestion(t *testing.T) {
	c := validConfig()
	assert.ErrorIs(t, c.ValidateIngestion(), ErrMissingSource)

	c.DocsSitemapURL = "https://example.com/sitemap.xml"
	assert.NoError(t, c.ValidateIngestion())

	c.DocsSitemapURL = ""
	c.RepoURL = "https://github.com/example/project"
	assert.NoError(t, c.ValidateIngestion())
}

func TestDefaultEmbedder(t *testing.T) {
	assert.Equal(t, DefaultOllamaEmbedder, defaultEmbedder(ProviderOllama))
	assert.Equal(t, DefaultOpenAIEmbedder, defaultEmbedder(ProviderOpenAI))
}
