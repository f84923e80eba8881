// Package app wires the application together: genkit with the configured
// backend plugin, the embedder, the vector store, the provider factory,
// and the query engine. Commands build on the resulting App container.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lorebot/lore/internal/config"
	"github.com/lorebot/lore/internal/knowledge"
	"github.com/lorebot/lore/internal/log"
	"github.com/lorebot/lore/internal/provider"
	"github.com/lorebot/lore/internal/query"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    *knowledge.Store
	Factory  *provider.Factory
	Engine   *query.Engine

	otelCleanup func()
}

// Close releases everything Setup acquired. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
