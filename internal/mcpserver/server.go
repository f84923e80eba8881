// Package mcpserver exposes the knowledge base to MCP clients. A single
// tool, ask_knowledge_base, runs the full retrieval-and-generation
// pipeline and returns the answer with its source citations.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lorebot/lore/internal/bot"
	"github.com/lorebot/lore/internal/query"
)

// Asker is the query entry point the tool drives.
type Asker interface {
	AskWithRetry(ctx context.Context, question string) (*query.Result, error)
}

// AskArgument defines the tool parameters.
type AskArgument struct {
	Question string `json:"question" jsonschema_description:"Natural-language question about the documentation or the codebase"`
}

// AskHandler handles the ask_knowledge_base MCP tool.
type AskHandler struct {
	engine Asker
}

// NewAskHandler creates an ask handler.
func NewAskHandler(engine Asker) *AskHandler {
	return &AskHandler{engine: engine}
}

// Handle answers the question and formats the result with citations.
// Tool-level failures are reported as error results, not protocol errors,
// so the client sees a readable message.
func (h *AskHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AskArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Question) == "" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: "Question cannot be empty"},
			},
			IsError: true,
		}, nil, nil
	}

	res, err := h.engine.AskWithRetry(ctx, args.Question)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Query failed: %s", err)},
			},
			IsError: true,
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: bot.FormatAnswer(res)},
		},
	}, nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *AskHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ask_knowledge_base",
		Description: "Answer a question using the indexed documentation and source code, with citations",
	}
}

// NewServer creates the MCP server with the ask tool registered.
func NewServer(engine Asker, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "lore",
		Version: version,
	}, nil)

	handler := NewAskHandler(engine)
	mcp.AddTool(s, handler.GetToolDefinition(), handler.Handle)

	return s
}

// Run serves MCP over stdio until ctx is canceled.
func Run(ctx context.Context, engine Asker, version string) error {
	return NewServer(engine, version).Run(ctx, &mcp.StdioTransport{})
}
