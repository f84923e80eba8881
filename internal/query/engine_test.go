package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorebot/lore/internal/ingest"
	"github.com/lorebot/lore/internal/knowledge"
	"github.com/lorebot/lore/internal/log"
)

type fakeRetriever struct {
	hits []knowledge.Result
	err  error
	k    int
}

func (f *fakeRetriever) Query(ctx context.Context, question string, k int) ([]knowledge.Result, error) {
	f.k = k
	return f.hits, f.err
}

type fakeGenerator struct {
	answer  string
	err     error
	window  int
	calls   int
	prompts []string
	docs    [][]*ai.Document
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, docs []*ai.Document) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.docs = append(f.docs, docs)
	return f.answer, f.err
}

func (f *fakeGenerator) ContextWindow() int { return f.window }

func testEngine(store retriever, gen generator) *Engine {
	return &Engine{
		store:    store,
		handle:   func(ctx context.Context) (generator, error) { return gen, nil },
		logger:   log.NewNop(),
		retryCfg: DefaultRetryConfig(),
	}
}

func TestAsk_MapsHitsToSources(t *testing.T) {
	long := strings.Repeat("a", 250)
	store := &fakeRetriever{hits: []knowledge.Result{
		{Text: long, SourcePath: "https://docs.example.com/guide", SourceType: ingest.SourceDocs, Score: 0.91},
		{Text: "short chunk", SourcePath: "lore/main.go", SourceType: ingest.SourceCode, Score: 0.42},
	}}
	gen := &fakeGenerator{answer: "Use the guide."}

	res, err := testEngine(store, gen).Ask(t.Context(), "how do I start?")
	require.NoError(t, err)

	assert.Equal(t, 5, store.k)
	assert.Equal(t, "Use the guide.", res.Answer)
	require.Len(t, res.Sources, 2)

	// Engine order is preserved and snippets are truncated at 200 runes.
	assert.Equal(t, "https://docs.example.com/guide", res.Sources[0].SourcePath)
	assert.Equal(t, ingest.SourceDocs, res.Sources[0].SourceType)
	assert.InDelta(t, 0.91, res.Sources[0].Score, 1e-6)
	assert.Len(t, res.Sources[0].TextSnippet, 203)
	assert.True(t, strings.HasSuffix(res.Sources[0].TextSnippet, "..."))

	assert.Equal(t, "short chunk", res.Sources[1].TextSnippet)
	assert.Equal(t, ingest.SourceCode, res.Sources[1].SourceType)
}

func TestAsk_NoHitsReturnsFallbackWithoutGenerating(t *testing.T) {
	store := &fakeRetriever{}
	gen := &fakeGenerator{}

	res, err := testEngine(store, gen).Ask(t.Context(), "anything")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Zero(t, gen.calls)
}

func TestAsk_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("collection knowledge_base does not exist; run reindex first")
	_, err := testEngine(&fakeRetriever{err: storeErr}, &fakeGenerator{}).Ask(t.Context(), "q")
	require.ErrorIs(t, err, storeErr)
}

func TestAsk_GenerateErrorPropagates(t *testing.T) {
	store := &fakeRetriever{hits: []knowledge.Result{{Text: "x"}}}
	genErr := errors.New("backend overloaded")
	_, err := testEngine(store, &fakeGenerator{err: genErr}).Ask(t.Context(), "q")
	require.ErrorIs(t, err, genErr)
}

func TestAsk_SingleCallWhenChunksFitWindow(t *testing.T) {
	store := &fakeRetriever{hits: []knowledge.Result{
		{Text: strings.Repeat("a", 900)},
		{Text: strings.Repeat("b", 900)},
		{Text: strings.Repeat("c", 900)},
	}}
	gen := &fakeGenerator{answer: "ok", window: 8192}

	_, err := testEngine(store, gen).Ask(t.Context(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Len(t, gen.docs[0], 3)
}

func TestAsk_RefinesAcrossBatchesWhenWindowIsSmall(t *testing.T) {
	// Budget is window*4/2 = 1024 chars, so each 900-char chunk forces its
	// own call and later calls must carry the draft forward.
	store := &fakeRetriever{hits: []knowledge.Result{
		{Text: strings.Repeat("a", 900)},
		{Text: strings.Repeat("b", 900)},
	}}
	gen := &fakeGenerator{answer: "draft answer", window: 512}

	res, err := testEngine(store, gen).Ask(t.Context(), "the question")
	require.NoError(t, err)

	require.Equal(t, 2, gen.calls)
	assert.Equal(t, "the question", gen.prompts[0])
	assert.Contains(t, gen.prompts[1], "the question")
	assert.Contains(t, gen.prompts[1], "draft answer")
	assert.Equal(t, "draft answer", res.Answer)

	// All retrieved chunks are cited even when split across calls.
	assert.Len(t, res.Sources, 2)
}

func TestPackBatches_OversizedChunkGetsOwnBatch(t *testing.T) {
	hits := []knowledge.Result{
		{Text: strings.Repeat("x", 5000)},
		{Text: "small"},
	}
	batches := packBatches(hits, 100)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 1)
	assert.Len(t, batches[1], 1)
}

func TestTruncateSnippet(t *testing.T) {
	assert.Len(t, truncateSnippet(strings.Repeat("x", 250)), 203)
	assert.Equal(t, strings.Repeat("x", 50), truncateSnippet(strings.Repeat("x", 50)))
	assert.Equal(t, strings.Repeat("x", 200), truncateSnippet(strings.Repeat("x", 200)))

	// Rune counting keeps multi-byte characters whole.
	wide := strings.Repeat("界", 250)
	got := truncateSnippet(wide)
	assert.Equal(t, strings.Repeat("界", 200)+"...", got)
}
