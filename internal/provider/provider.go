// Package provider selects and configures the text-generation backend.
//
// Two backend kinds exist: the hosted OpenAI-compatible API and a local
// Ollama server. Handles are cached per (kind, system prompt) so repeated
// queries never repeat the Ollama health probe or rebuild backend state.
// The cache is an explicit object owned by the composing application, not
// package-global state, so tests can reset it without touching the
// environment.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Kind identifies a text-generation backend.
type Kind string

// Supported backend kinds.
const (
	KindOpenAI Kind = "openai"
	KindOllama Kind = "ollama"
)

// Defaults for generation parameters. Answers should be grounded and
// repeatable, hence the deterministic-leaning temperature and bounded
// output.
const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 1024
)

// Options carries the backend configuration the factory needs.
type Options struct {
	Kind Kind

	// Generation parameters shared by both kinds; zero values fall back
	// to the package defaults.
	Temperature float32
	MaxTokens   int

	// Hosted API backend.
	Model string

	// Local backend.
	OllamaHost          string
	OllamaModel         string
	OllamaTimeout       time.Duration
	OllamaContextWindow int
}

// Handle is a ready-to-use text-generation backend bound to one system
// prompt. Handles are immutable and safe for concurrent use.
type Handle struct {
	g            *genkit.Genkit
	kind         Kind
	modelName    string // fully-qualified genkit model name
	systemPrompt string
	temperature  float32
	maxTokens    int

	// Local-backend request bounds; zero for the hosted kind.
	timeout       time.Duration
	contextWindow int
}

// Kind returns the backend kind behind this handle.
func (h *Handle) Kind() Kind { return h.kind }

// ContextWindow returns the local backend's context window in tokens, or
// 0 when the hosted backend's (much larger) default applies. The query
// engine uses this to size its context packing.
func (h *Handle) ContextWindow() int { return h.contextWindow }

// Generate produces an answer for prompt, grounding the model on docs.
// The system prompt bound at construction is always applied.
func (h *Handle) Generate(ctx context.Context, prompt string, docs []*ai.Document) (string, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(h.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(h.temperature),
			MaxOutputTokens: h.maxTokens,
		}),
	}
	if h.systemPrompt != "" {
		opts = append(opts, ai.WithSystem(h.systemPrompt))
	}
	if len(docs) > 0 {
		opts = append(opts, ai.WithDocs(docs...))
	}

	resp, err := genkit.Generate(ctx, h.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating with %s: %w", h.modelName, err)
	}
	return resp.Text(), nil
}

// Factory hands out cached backend handles.
//
// Concurrent first requests for the same key may both construct; both
// results are functionally equivalent and the later write wins. That race
// is deliberate — the cache exists to avoid repeated health probes, not
// to guarantee single construction.
type Factory struct {
	g      *genkit.Genkit
	opts   Options
	health HealthChecker

	mu    sync.RWMutex
	cache map[string]*Handle
}

// NewFactory creates a Factory for the configured backend. The genkit
// instance must already have the matching plugin registered.
func NewFactory(g *genkit.Genkit, opts Options) *Factory {
	return &Factory{
		g:      g,
		opts:   opts,
		health: newOllamaHealth(),
		cache:  make(map[string]*Handle),
	}
}

// Handle returns a generation handle for the given system prompt,
// constructing and caching one on first use.
//
// Hosted-API handles are built without any network I/O. Local handles
// probe the backend's model listing first and fail with a distinct error
// for each failure mode (see errors.go). Cache hits never touch the
// network.
func (f *Factory) Handle(ctx context.Context, systemPrompt string) (*Handle, error) {
	key := cacheKey(f.opts.Kind, systemPrompt)

	f.mu.RLock()
	h, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return h, nil
	}

	h, err := f.build(ctx, systemPrompt)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache[key] = h
	f.mu.Unlock()
	return h, nil
}

func (f *Factory) build(ctx context.Context, systemPrompt string) (*Handle, error) {
	temperature := f.opts.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := f.opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	switch f.opts.Kind {
	case KindOpenAI:
		return &Handle{
			g:            f.g,
			kind:         KindOpenAI,
			modelName:    "openai/" + f.opts.Model,
			systemPrompt: systemPrompt,
			temperature:  temperature,
			maxTokens:    maxTokens,
		}, nil

	case KindOllama:
		if err := f.health.Check(ctx, f.opts.OllamaHost, f.opts.OllamaModel); err != nil {
			return nil, err
		}
		return &Handle{
			g:             f.g,
			kind:          KindOllama,
			modelName:     "ollama/" + f.opts.OllamaModel,
			systemPrompt:  systemPrompt,
			temperature:   temperature,
			maxTokens:     maxTokens,
			timeout:       f.opts.OllamaTimeout,
			contextWindow: f.opts.OllamaContextWindow,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q, must be %q or %q",
			ErrUnknownKind, f.opts.Kind, KindOpenAI, KindOllama)
	}
}

// Clear empties the cache. Used when switching providers in tests or ops;
// entries are never evicted otherwise.
func (f *Factory) Clear() {
	f.mu.Lock()
	f.cache = make(map[string]*Handle)
	f.mu.Unlock()
}

// cacheKey builds the (kind, system prompt) cache key. The NUL separator
// cannot appear in either component.
func cacheKey(kind Kind, systemPrompt string) string {
	return string(kind) + "\x00" + systemPrompt
}
