package driving

import (
	"context"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// IngestService is the ingestion-facing API of the engine. An external
// ingestion pipeline produces normalised documents; this service persists
// them, chunks and embeds their text, and feeds both indexers.
type IngestService interface {
	// IndexDocument stores a document, (re)builds its chunks and
	// embeddings, and updates both indexes. Concurrent calls for the
	// same document ID are serialised; different documents may proceed
	// concurrently.
	IndexDocument(ctx context.Context, doc domain.Document) error

	// IndexChunk stores one pre-chunked span of an already-indexed
	// document and adds it to the vector index.
	IndexChunk(ctx context.Context, chunk domain.Chunk) error

	// RemoveDocument deletes a document from storage and both indexes.
	RemoveDocument(ctx context.Context, id string) error

	// RebuildIndexes re-feeds both indexers from the document store.
	// Used to recover from index corruption.
	RebuildIndexes(ctx context.Context) error
}
