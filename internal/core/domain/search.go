package domain

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results (default 10).
	Limit int

	// Filters is the conjunctive filter set applied to candidates.
	Filters FilterSet

	// User is the requesting principal's context.
	User UserContext
}

// ComponentScores is the named breakdown of the final ranking score.
// Every component is normalised to [0,1].
type ComponentScores struct {
	TextRelevance     float64 `json:"textRelevance"`
	Performance       float64 `json:"performance"`
	Geography         float64 `json:"geography"`
	Freshness         float64 `json:"freshness"`
	PermissionFit     float64 `json:"permissionFit"`
	HistoricalSuccess float64 `json:"historicalSuccess"`
	Popularity        float64 `json:"popularity"`
}

// Citation maps a search result back to a source span for attribution.
type Citation struct {
	// ChunkID is the chunk that contributed the span. Empty for spans
	// derived from lexical term matches.
	ChunkID string `json:"chunkId,omitempty"`

	// OffsetStart is the byte offset of the span in the document's RawText.
	OffsetStart int `json:"offsetStart"`

	// OffsetEnd is the exclusive end offset of the span.
	OffsetEnd int `json:"offsetEnd"`

	// Snippet is the text of the cited span.
	Snippet string `json:"snippet,omitempty"`
}

// SearchResult is one ranked hit. Results are constructed fresh per query
// and never persisted.
type SearchResult struct {
	// DocumentID is the matched document.
	DocumentID string `json:"documentId"`

	// Document is the hydrated document record.
	Document Document `json:"-"`

	// FinalScore is the weighted multi-factor score.
	FinalScore float64 `json:"finalScore"`

	// Components is the per-factor score breakdown.
	Components ComponentScores `json:"componentScores"`

	// Citations are the source spans that contributed to the hit,
	// ordered by offset. Empty for lexical-only hits with no chunk mapping.
	Citations []Citation `json:"citations"`
}

// Degradation records which pipeline stages were skipped due to
// collaborator timeouts. A degraded response is still a success.
type Degradation struct {
	// VectorSearch is true when the query embedding was unavailable and
	// retrieval ran lexical-only.
	VectorSearch bool `json:"vectorSearch"`

	// Rerank is true when cross-encoder scoring timed out and the merge
	// ordering was passed through unchanged.
	Rerank bool `json:"rerank"`

	// Deadline is true when the overall query deadline expired and a
	// best-effort ranking from the last completed stage was returned.
	Deadline bool `json:"deadline"`
}

// Any returns true if any stage degraded.
func (d Degradation) Any() bool {
	return d.VectorSearch || d.Rerank || d.Deadline
}

// SearchResponse is the output of one ranking pass.
type SearchResponse struct {
	// Results are the ranked hits, best first.
	Results []SearchResult `json:"results"`

	// Degraded flags the stages that were skipped, if any.
	Degraded Degradation `json:"degraded"`
}
