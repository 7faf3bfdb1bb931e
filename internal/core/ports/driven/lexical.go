package driven

import (
	"context"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// LexicalIndex provides full-text keyword search over documents.
// Backed by a BM25 inverted index with per-document filter bitmaps.
type LexicalIndex interface {
	// Index adds or updates a document in the index. Re-indexing an
	// existing document rebuilds only its affected postings.
	Index(ctx context.Context, doc domain.Document) error

	// Delete removes a document from the index.
	Delete(ctx context.Context, documentID string) error

	// Search performs a keyword search. Filters are applied during
	// postings intersection, not as a post-filter, so filtered-out
	// documents never compete for the limit slots. Results are ordered
	// by descending BM25 score; ties break by LastUpdatedAt descending.
	Search(ctx context.Context, text string, filters domain.FilterSet, limit int) ([]LexicalHit, error)

	// Close releases resources.
	Close() error
}

// LexicalHit is a keyword search result.
type LexicalHit struct {
	// DocumentID is the matched document.
	DocumentID string

	// Score is the BM25 relevance score.
	Score float64

	// TermSpans are byte offsets of matched query terms within the
	// document's RawText, used for citation building.
	TermSpans []TermSpan
}

// TermSpan is the location of one matched term occurrence.
type TermSpan struct {
	Term  string
	Start int
	End   int
}
