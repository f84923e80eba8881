// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (LORE_* plus OPENAI_API_KEY)
//  2. Config file (~/.lore/config.yaml or ./config.yaml)
//  3. Defaults
//
// Validation uses sentinel errors so callers can branch with errors.Is().
// Configuration errors are never retried anywhere in the pipeline; they
// cannot self-resolve.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the LLM provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidOllamaHost indicates the Ollama host URL is empty.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidOllamaTimeout indicates the Ollama request timeout is invalid.
	ErrInvalidOllamaTimeout = errors.New("invalid Ollama timeout")

	// ErrInvalidContextWindow indicates the Ollama context window is invalid.
	ErrInvalidContextWindow = errors.New("invalid context window")

	// ErrInvalidPersistDir indicates the vector store persistence path is empty.
	ErrInvalidPersistDir = errors.New("invalid persist dir")

	// ErrMissingSource indicates no ingestion source is configured.
	ErrMissingSource = errors.New("no ingestion source configured")
)

// Provider identifiers used in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Default embedder models per provider. Build and query must use the same
// embedder; mismatched models silently degrade retrieval relevance, so the
// model is pinned in config rather than chosen per call.
const (
	DefaultOpenAIEmbedder = "text-embedding-3-small"
	DefaultOllamaEmbedder = "nomic-embed-text"
)

// Config stores application configuration.
type Config struct {
	// LLM provider and model configuration
	Provider    string  `mapstructure:"provider"`     // "openai" (default) or "ollama"
	ModelName   string  `mapstructure:"model_name"`   // hosted model, e.g. "gpt-4o-mini"
	Temperature float32 `mapstructure:"temperature"`  // deterministic-leaning default
	MaxTokens   int     `mapstructure:"max_tokens"`   // bounded answer length
	OpenAIKey   string  `mapstructure:"openai_key"`   // SENSITIVE: never logged
	OpenAIBase  string  `mapstructure:"openai_base"`  // hosted API base URL

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost          string `mapstructure:"ollama_host"`
	OllamaModel         string `mapstructure:"ollama_model"`
	OllamaTimeoutSec    int    `mapstructure:"ollama_timeout_sec"`
	OllamaContextWindow int    `mapstructure:"ollama_context_window"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model"`

	// Ingestion sources
	DocsSitemapURL string `mapstructure:"docs_sitemap_url"`
	RepoURL        string `mapstructure:"repo_url"`
	ReposDir       string `mapstructure:"repos_dir"` // local clone cache

	// Vector store persistence
	PersistDir string `mapstructure:"persist_dir"`

	// HTTP chat surface (serve mode)
	ListenAddr string `mapstructure:"listen_addr"`

	// Observability: OTLP trace endpoint, empty disables tracing
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Load loads configuration from defaults, config file, and environment.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".lore")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.EmbedderModel == "" {
		cfg.EmbedderModel = defaultEmbedder(cfg.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// defaultEmbedder returns the default embedding model for a provider.
func defaultEmbedder(provider string) string {
	if provider == ProviderOllama {
		return DefaultOllamaEmbedder
	}
	return DefaultOpenAIEmbedder
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model_name", "gpt-4o-mini")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("openai_base", "https://api.openai.com/v1")

	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3.2")
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("ollama_context_window", 8192)

	v.SetDefault("repos_dir", filepath.Join(configDir, "repos"))
	v.SetDefault("persist_dir", filepath.Join(configDir, "index"))

	v.SetDefault("listen_addr", "127.0.0.1:3400")
}

// bindEnvVariables binds environment variables explicitly. The hardcoded
// keys cannot fail to bind; a panic here is a bug, not a runtime error.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key string, envVars ...string) {
		if err := v.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	mustBind("provider", "LORE_PROVIDER")
	mustBind("model_name", "LORE_MODEL_NAME")
	mustBind("temperature", "LORE_TEMPERATURE")
	mustBind("max_tokens", "LORE_MAX_TOKENS")

	// OPENAI_API_KEY is the conventional name; LORE_OPENAI_KEY overrides.
	mustBind("openai_key", "LORE_OPENAI_KEY", "OPENAI_API_KEY")
	mustBind("openai_base", "LORE_OPENAI_BASE", "OPENAI_API_BASE")

	mustBind("ollama_host", "LORE_OLLAMA_HOST")
	mustBind("ollama_model", "LORE_OLLAMA_MODEL")
	mustBind("ollama_timeout_sec", "LORE_OLLAMA_TIMEOUT_SEC")
	mustBind("ollama_context_window", "LORE_OLLAMA_CONTEXT_WINDOW")

	mustBind("embedder_model", "LORE_EMBEDDER_MODEL")

	mustBind("docs_sitemap_url", "LORE_DOCS_SITEMAP_URL")
	mustBind("repo_url", "LORE_REPO_URL")
	mustBind("repos_dir", "LORE_REPOS_DIR")
	mustBind("persist_dir", "LORE_PERSIST_DIR")

	mustBind("listen_addr", "LORE_LISTEN_ADDR")
	mustBind("otlp_endpoint", "LORE_OTLP_ENDPOINT")
}
