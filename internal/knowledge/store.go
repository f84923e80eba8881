// Package knowledge wraps the persistent vector index. It owns chunking
// of ingested documents, embedding, the single named collection, and
// nearest-neighbor queries against it.
//
// The only supported mutation is a full rebuild: delete the collection,
// then Build again. There is no update or delete-by-id path.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lorebot/lore/internal/chunk"
	"github.com/lorebot/lore/internal/ingest"
	"github.com/lorebot/lore/internal/log"
)

// CollectionName is the single collection holding the knowledge base.
const CollectionName = "knowledge_base"

// Metadata keys attached to every stored chunk.
const (
	metaSourcePath = "source_path"
	metaSourceType = "source_type"
	metaRepoURL    = "repo_url"
)

// Result is one retrieved chunk with its similarity score. Scores are
// meaningful only relative to other results of the same query.
type Result struct {
	Text       string
	SourcePath string
	SourceType ingest.SourceType
	RepoURL    string
	Score      float32
}

// Store manages the persistent vector index.
//
// Store is safe for concurrent queries; Build assumes exclusive ownership
// of the collection for its duration, which the reindex entry point
// guarantees by file-locking the persistence directory.
type Store struct {
	db       *chromem.DB
	embed    chromem.EmbeddingFunc
	splitter chunk.Splitter
	logger   log.Logger

	persistDir    string
	embedderModel string
}

// NewStore opens (or creates) the persistent vector database at
// persistDir. The embedding function must be backed by the same model at
// build and query time; a mismatch degrades retrieval silently, which is
// why the model name is recorded in the build manifest.
func NewStore(persistDir string, embed chromem.EmbeddingFunc, embedderModel string, logger log.Logger) (*Store, error) {
	db, err := chromem.NewPersistentDB(persistDir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %s: %w", persistDir, err)
	}

	if logger == nil {
		logger = log.NewNop()
	}

	s := &Store{
		db:            db,
		embed:         embed,
		splitter:      chunk.New(),
		logger:        logger,
		persistDir:    persistDir,
		embedderModel: embedderModel,
	}

	s.warnOnEmbedderMismatch()
	return s, nil
}

// warnOnEmbedderMismatch compares the configured embedder against the one
// recorded at build time. Mismatches are logged, not enforced: the store
// still works, it just retrieves badly, and the operator should rebuild.
func (s *Store) warnOnEmbedderMismatch() {
	m, err := LoadManifest(s.persistDir)
	if err != nil || m == nil {
		return
	}
	if m.EmbedderModel != s.embedderModel {
		s.logger.Warn("embedder model differs from the one used at build time; rerun reindex",
			"built_with", m.EmbedderModel,
			"configured", s.embedderModel)
	}
}

// DeleteCollection removes the collection. Deleting a collection that
// does not exist is not an error; rebuilds always start with a delete.
func (s *Store) DeleteCollection() error {
	if s.db.GetCollection(CollectionName, s.embed) == nil {
		return nil
	}
	if err := s.db.DeleteCollection(CollectionName); err != nil {
		return fmt.Errorf("deleting collection %s: %w", CollectionName, err)
	}
	return nil
}

// Build chunks every document, embeds each chunk, and inserts them into
// the collection. Returns the number of chunks stored. Callers rebuilding
// must call DeleteCollection first; Build itself only inserts.
func (s *Store) Build(ctx context.Context, docs []ingest.Document) (int, error) {
	col, err := s.db.GetOrCreateCollection(CollectionName, map[string]string{
		"embedder_model": s.embedderModel,
	}, s.embed)
	if err != nil {
		return 0, fmt.Errorf("creating collection %s: %w", CollectionName, err)
	}

	var records []chromem.Document
	for _, doc := range docs {
		pieces := s.splitter.Split(doc.Text)
		if len(pieces) == 0 {
			// Empty documents must never reach the embedder.
			s.logger.Debug("dropping empty document", "source", doc.SourcePath)
			continue
		}

		for i, piece := range pieces {
			meta := map[string]string{
				metaSourcePath: doc.SourcePath,
				metaSourceType: string(doc.SourceType),
			}
			if doc.RepoURL != "" {
				meta[metaRepoURL] = doc.RepoURL
			}
			records = append(records, chromem.Document{
				ID:       chunkID(doc.SourcePath, i),
				Content:  piece,
				Metadata: meta,
			})
		}
	}

	if len(records) == 0 {
		return 0, nil
	}

	if err := col.AddDocuments(ctx, records, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("embedding and inserting %d chunks: %w", len(records), err)
	}

	m := &Manifest{
		EmbedderModel: s.embedderModel,
		Documents:     len(docs),
		Chunks:        len(records),
	}
	if err := m.Save(s.persistDir); err != nil {
		s.logger.Warn("failed to write build manifest", "error", err)
	}

	s.logger.Info("index built", "documents", len(docs), "chunks", len(records))
	return len(records), nil
}

// Query embeds question with the build-time embedding model and returns
// the k nearest chunks with scores, best first.
func (s *Store) Query(ctx context.Context, question string, k int) ([]Result, error) {
	col := s.db.GetCollection(CollectionName, s.embed)
	if col == nil {
		return nil, fmt.Errorf("collection %s does not exist; run reindex first", CollectionName)
	}

	// chromem rejects k larger than the collection.
	if n := col.Count(); k > n {
		k = n
	}
	if k == 0 {
		return nil, nil
	}

	hits, err := col.Query(ctx, question, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Text:       h.Content,
			SourcePath: h.Metadata[metaSourcePath],
			SourceType: ingest.SourceType(h.Metadata[metaSourceType]),
			RepoURL:    h.Metadata[metaRepoURL],
			Score:      h.Similarity,
		})
	}
	return results, nil
}

// Count returns the number of stored chunks, 0 when the collection is absent.
func (s *Store) Count() int {
	col := s.db.GetCollection(CollectionName, s.embed)
	if col == nil {
		return 0
	}
	return col.Count()
}

// chunkID derives a stable chunk identifier from the source path and the
// chunk's ordinal within its document.
func chunkID(sourcePath string, ordinal int) string {
	sum := sha256.Sum256([]byte(sourcePath))
	return fmt.Sprintf("%s:%04d", hex.EncodeToString(sum[:8]), ordinal)
}
