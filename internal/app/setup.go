package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lorebot/lore/internal/config"
	"github.com/lorebot/lore/internal/knowledge"
	"github.com/lorebot/lore/internal/log"
	"github.com/lorebot/lore/internal/provider"
	"github.com/lorebot/lore/internal/query"
)

// Setup initializes the application from validated configuration.
// Returns an App whose Close releases everything acquired here.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be registered before genkit.Init so spans from plugin
	// initialization are captured too.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, err := knowledge.NewStore(cfg.PersistDir,
		knowledge.NewEmbeddingFunc(embedder), cfg.EmbedderModel, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	a.Factory = provider.NewFactory(g, provider.Options{
		Kind:                provider.Kind(cfg.Provider),
		Temperature:         cfg.Temperature,
		MaxTokens:           cfg.MaxTokens,
		Model:               cfg.ModelName,
		OllamaHost:          cfg.OllamaHost,
		OllamaModel:         cfg.OllamaModel,
		OllamaTimeout:       time.Duration(cfg.OllamaTimeoutSec) * time.Second,
		OllamaContextWindow: cfg.OllamaContextWindow,
	})

	a.Engine = query.NewEngine(store, a.Factory, logger)

	return a, nil
}

// provideOtelShutdown registers an OTLP HTTP exporter with genkit's tracer
// provider. Tracing is disabled when no endpoint is configured; exporter
// construction failure downgrades to a warning rather than failing setup.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("tracing enabled", "endpoint", cfg.OTLPEndpoint)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes genkit with the configured backend plugin.
// Ollama requires explicit model and embedder registration; the OpenAI
// compat plugin discovers its models itself.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.OllamaModel,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.OllamaModel, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenAI:
		var opts []option.RequestOption
		if cfg.OpenAIBase != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBase))
		}
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{
			APIKey: cfg.OpenAIKey,
			Opts:   opts,
		}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)
		return g, nil

	default:
		return nil, fmt.Errorf("%w: %q, must be %q or %q",
			config.ErrInvalidProvider, cfg.Provider, config.ProviderOpenAI, config.ProviderOllama)
	}
}

// provideEmbedder looks up the embedder registered by the backend plugin.
// Ollama keys embedders by server address; OpenAI by model name.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	if cfg.Provider == config.ProviderOllama {
		return ollama.Embedder(g, cfg.OllamaHost)
	}
	return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
}
