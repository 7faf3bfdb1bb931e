package domain

// PlannedQuery is the Query Planner's output: a validated query ready to
// dispatch to the lexical and vector indexers.
type PlannedQuery struct {
	// Text is the trimmed query text used for lexical search.
	Text string

	// Embedding is the query embedding for vector search. Nil when
	// embedding generation failed or timed out.
	Embedding []float32

	// Filters is the conjunctive filter set passed through to both
	// indexers and to the permission-fit stage.
	Filters FilterSet

	// VectorSearchDegraded is true when the embedding is absent and the
	// plan proceeds lexical-only.
	VectorSearchDegraded bool
}
