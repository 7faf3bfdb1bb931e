package driving

import (
	"context"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// SearchService provides ranked retrieval to external actors.
type SearchService interface {
	// Search runs the full pipeline: plan, parallel lexical and vector
	// retrieval, merge, re-rank, signal ranking, citation building.
	//
	// Collaborator timeouts degrade individual stages and are reported
	// in the response's Degraded flags; only an invalid query or index
	// corruption yields an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
