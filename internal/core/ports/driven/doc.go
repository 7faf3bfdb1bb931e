// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - DocumentStore: document and chunk persistence
//   - LexicalIndex: BM25 inverted index. Keyword search is always required.
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - VectorIndex: ANN search over chunk embeddings. Only useful when an
//     EmbeddingService is configured.
//   - EmbeddingService: generates embeddings. Without it, retrieval runs
//     lexical-only and results carry a degradation flag.
//   - CrossEncoder: pairwise (query, text) relevance scoring. Without it,
//     the merge-stage ordering passes through to the signal ranker.
//   - ProfileStore: performance telemetry. Without it, the performance
//     component scores zero.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven
