package config

import (
	"fmt"
	"net/url"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required when provider is %q",
				ErrMissingAPIKey, ProviderOpenAI)
		}
		if c.ModelName == "" {
			return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
		if _, err := url.ParseRequestURI(c.OllamaHost); err != nil {
			return fmt.Errorf("%w: ollama_host %q is not a valid URL", ErrInvalidOllamaHost, c.OllamaHost)
		}
		if c.OllamaModel == "" {
			return fmt.Errorf("%w: ollama_model cannot be empty", ErrInvalidModelName)
		}
		if c.OllamaTimeoutSec < 1 {
			return fmt.Errorf("%w: must be at least 1 second, got %d", ErrInvalidOllamaTimeout, c.OllamaTimeoutSec)
		}
		if c.OllamaContextWindow < 512 {
			return fmt.Errorf("%w: must be at least 512 tokens, got %d", ErrInvalidContextWindow, c.OllamaContextWindow)
		}
	default:
		return fmt.Errorf("%w: %q, must be %q or %q",
			ErrInvalidProvider, c.Provider, ProviderOpenAI, ProviderOllama)
	}

	// Temperature range follows the hosted API contract.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.PersistDir == "" {
		return fmt.Errorf("%w: persist_dir cannot be empty", ErrInvalidPersistDir)
	}

	return nil
}

// ValidateIngestion checks that at least one ingestion source is configured.
// Called by the reindex path only; serving an already-built index does not
// need source URLs.
func (c *Config) ValidateIngestion() error {
	if c.DocsSitemapURL == "" && c.RepoURL == "" {
		return fmt.Errorf("%w: set docs_sitemap_url and/or repo_url", ErrMissingSource)
	}
	return nil
}
