package driven

import (
	"context"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// VectorIndex provides approximate-nearest-neighbour search over chunk
// embeddings. Similarity is cosine over normalised vectors.
type VectorIndex interface {
	// Add inserts or replaces the vector for a chunk. The owning
	// document's metadata feeds the index's filter bitmap.
	Add(ctx context.Context, chunk domain.Chunk, doc domain.Document) error

	// DeleteDocument removes all chunk vectors of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Search finds the k nearest chunks to the query vector among
	// chunks whose document satisfies the filters. Candidates outside
	// the filter set are skipped during traversal rather than scored
	// then discarded.
	Search(ctx context.Context, query []float32, filters domain.FilterSet, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the chunk's owning document.
	DocumentID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
