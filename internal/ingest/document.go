// Package ingest loads raw content from the configured knowledge sources
// and normalizes it into Documents ready for chunking and embedding.
//
// Two loaders exist: DocsLoader walks a sitemap and converts documentation
// pages to plain text, RepoLoader clones a git repository and reads its
// source files. Both tag every Document with provenance metadata that is
// carried through chunking into the vector store.
package ingest

// SourceType identifies where a document came from.
type SourceType string

// Source types carried as chunk metadata and surfaced in citations.
const (
	SourceDocs SourceType = "docs"
	SourceCode SourceType = "code"
)

// Document is a normalized unit of ingested content prior to chunking.
// Documents are transient: created by a loader, consumed once by the
// chunker, never persisted themselves.
type Document struct {
	// Text is the plain-text content. Loaders drop documents that
	// normalize to empty text, so Text is non-empty by construction.
	Text string

	// SourcePath is the page URL for docs, "{repo}/{relative/path}" for code.
	SourcePath string

	// SourceType is SourceDocs or SourceCode.
	SourceType SourceType

	// RepoURL is the originating repository URL. Code documents only.
	RepoURL string
}
