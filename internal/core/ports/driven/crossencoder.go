package driven

import "context"

// CrossEncoder scores (query, candidate text) pairs jointly for relevance.
// This is an optional service - when nil or timing out, the re-ranking stage
// passes the merge ordering through unchanged.
//
// A cross-encoder is deliberately a different representation from the
// bi-encoder embeddings used in vector retrieval: the bi-encoder gives
// recall, the cross-encoder gives precision over a small candidate set.
type CrossEncoder interface {
	// ScoreBatch returns one relevance score per candidate text, in input
	// order. The whole candidate set is scored in a single call.
	ScoreBatch(ctx context.Context, query string, candidateTexts []string) ([]float64, error)

	// ModelName returns the name of the scoring model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
