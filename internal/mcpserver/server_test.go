package mcpserver

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorebot/lore/internal/ingest"
	"github.com/lorebot/lore/internal/query"
)

type fakeAsker struct {
	res *query.Result
	err error
}

func (f *fakeAsker) AskWithRetry(ctx context.Context, question string) (*query.Result, error) {
	return f.res, f.err
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestAskHandler_AnswerWithCitations(t *testing.T) {
	h := NewAskHandler(&fakeAsker{res: &query.Result{
		Answer: "Set persist_dir in config.yaml.",
		Sources: []query.Source{
			{SourcePath: "https://docs.example.com/config", SourceType: ingest.SourceDocs, Score: 0.8},
		},
	}})

	res, _, err := h.Handle(t.Context(), nil, AskArgument{Question: "where is the index stored?"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := textContent(t, res)
	assert.Contains(t, text, "persist_dir")
	assert.Contains(t, text, "Sources")
	assert.Contains(t, text, "https://docs.example.com/config")
}

func TestAskHandler_EmptyQuestion(t *testing.T) {
	h := NewAskHandler(&fakeAsker{})

	res, _, err := h.Handle(t.Context(), nil, AskArgument{Question: "  "})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "empty")
}

func TestAskHandler_QueryFailureIsToolError(t *testing.T) {
	h := NewAskHandler(&fakeAsker{err: errors.New("backend unreachable")})

	res, _, err := h.Handle(t.Context(), nil, AskArgument{Question: "q"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "backend unreachable")
}

func TestNewServerRegistersTool(t *testing.T) {
	s := NewServer(&fakeAsker{}, "test")
	require.NotNil(t, s)
}
