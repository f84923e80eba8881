// Package query orchestrates retrieval and generation for a single
// question: fetch the most similar chunks from the knowledge store, pack
// them into as few model calls as the context window allows, and return
// the answer together with ranked source citations.
package query

import "github.com/lorebot/lore/internal/ingest"

// snippetRunes bounds the preview text carried on a Source.
const snippetRunes = 200

// Source is one citation backing an answer.
type Source struct {
	// TextSnippet is a preview of the chunk, truncated to 200 characters
	// with a "..." marker when the chunk was longer.
	TextSnippet string
	SourcePath  string
	SourceType  ingest.SourceType
	// Score is the similarity score, usable only for relative ranking
	// within one result; 0 when the backend reports none.
	Score float32
}

// Result bundles the answer for one question with its sources, ordered
// best-first in the store's native relevance order. Constructed fresh
// per question and never mutated afterwards.
type Result struct {
	Answer  string
	Sources []Source
}

// truncateSnippet cuts text to the snippet bound, counting runes so a
// multi-byte character is never severed mid-sequence.
func truncateSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}
