package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHealth struct {
	calls int
	err   error
}

func (c *countingHealth) Check(ctx context.Context, baseURL, model string) error {
	c.calls++
	return c.err
}

func newTestFactory(opts Options, hc HealthChecker) *Factory {
	f := NewFactory(nil, opts)
	f.health = hc
	return f
}

func TestFactory_CachesByPrompt(t *testing.T) {
	hc := &countingHealth{}
	f := newTestFactory(Options{
		Kind:          KindOllama,
		OllamaHost:    "http://localhost:11434",
		OllamaModel:   "llama3.2",
		OllamaTimeout: time.Minute,
	}, hc)

	h1, err := f.Handle(t.Context(), "You are a helpful assistant.")
	require.NoError(t, err)
	h2, err := f.Handle(t.Context(), "You are a helpful assistant.")
	require.NoError(t, err)

	// Same key returns the identical handle; the probe ran once.
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, hc.calls)

	h3, err := f.Handle(t.Context(), "Answer in French.")
	require.NoError(t, err)
	assert.NotSame(t, h1, h3)
	assert.Equal(t, 2, hc.calls)
}

func TestFactory_HealthFailureNotCached(t *testing.T) {
	hc := &countingHealth{err: &ConnectivityError{BaseURL: "http://localhost:11434"}}
	f := newTestFactory(Options{
		Kind:        KindOllama,
		OllamaHost:  "http://localhost:11434",
		OllamaModel: "llama3.2",
	}, hc)

	_, err := f.Handle(t.Context(), "prompt")
	require.Error(t, err)
	_, err = f.Handle(t.Context(), "prompt")
	require.Error(t, err)

	// Failures are not cached; each attempt re-probes.
	assert.Equal(t, 2, hc.calls)
}

func TestFactory_OpenAISkipsProbe(t *testing.T) {
	hc := &countingHealth{}
	f := newTestFactory(Options{Kind: KindOpenAI, Model: "gpt-4o-mini"}, hc)

	h, err := f.Handle(t.Context(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 0, hc.calls)
	assert.Equal(t, "openai/gpt-4o-mini", h.modelName)
	assert.Zero(t, h.ContextWindow())
}

func TestFactory_UnknownKind(t *testing.T) {
	f := newTestFactory(Options{Kind: "anthropic"}, &countingHealth{})

	_, err := f.Handle(t.Context(), "prompt")
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), `"anthropic"`)
	assert.Contains(t, err.Error(), `"openai"`)
	assert.Contains(t, err.Error(), `"ollama"`)
}

func TestFactory_Clear(t *testing.T) {
	hc := &countingHealth{}
	f := newTestFactory(Options{
		Kind:        KindOllama,
		OllamaHost:  "http://localhost:11434",
		OllamaModel: "llama3.2",
	}, hc)

	h1, err := f.Handle(t.Context(), "prompt")
	require.NoError(t, err)
	f.Clear()
	h2, err := f.Handle(t.Context(), "prompt")
	require.NoError(t, err)

	assert.NotSame(t, h1, h2)
	assert.Equal(t, 2, hc.calls)
}

func TestFactory_OllamaHandleCarriesBounds(t *testing.T) {
	f := newTestFactory(Options{
		Kind:                KindOllama,
		OllamaHost:          "http://localhost:11434",
		OllamaModel:         "llama3.2",
		OllamaTimeout:       2 * time.Minute,
		OllamaContextWindow: 8192,
	}, &countingHealth{})

	h, err := f.Handle(t.Context(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, KindOllama, h.Kind())
	assert.Equal(t, 8192, h.ContextWindow())
	assert.Equal(t, "ollama/llama3.2", h.modelName)
}
