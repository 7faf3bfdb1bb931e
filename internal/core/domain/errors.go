package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidQuery indicates a query that is empty after trimming.
	// Returned synchronously and never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInvalidWeights indicates a scoring weight configuration that
	// does not sum to one or contains negative values.
	ErrInvalidWeights = errors.New("invalid scoring weights")

	// ErrIndexCorruption indicates an internal index invariant violation,
	// such as a posting referencing a missing document. Fatal for the
	// affected index; callers should rebuild from the document store
	// rather than serve corrupt results.
	ErrIndexCorruption = errors.New("index corruption")

	// ErrCollaboratorUnavailable indicates an external model service
	// (embedding or cross-encoder) is unreachable. Retried once with
	// backoff, then the corresponding stage degrades.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrDimensionMismatch indicates an embedding whose dimension does
	// not match the vector index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLexicalIndexUnavailable indicates the lexical index is not
	// configured. Keyword search is disabled.
	ErrLexicalIndexUnavailable = errors.New("lexical index unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured. Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
