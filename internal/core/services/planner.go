package services

import (
	"context"
	"strings"
	"time"

	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/logger"
)

// collaboratorRetryBackoff is the pause before the single retry of a
// failed external model call.
const collaboratorRetryBackoff = 25 * time.Millisecond

// plan validates the query and prepares it for dispatch. It trims the
// input, rejects empty queries, and generates the query embedding under
// its own timeout. Embedding failure is not fatal: the plan proceeds
// lexical-only and is marked degraded.
//
// Tokenization happens inside the lexical index's own tokenizer; the
// planner does not duplicate it.
func (s *SearchService) plan(
	ctx context.Context, query string, filters domain.FilterSet,
) (domain.PlannedQuery, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.PlannedQuery{}, domain.ErrInvalidQuery
	}

	plan := domain.PlannedQuery{
		Text:    query,
		Filters: filters,
	}

	if s.embedder == nil || s.vector == nil {
		logger.Debug("No embedding service or vector index, planning lexical-only")
		plan.VectorSearchDegraded = true
		return plan, nil
	}

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v (degrading to lexical-only)", err)
		plan.VectorSearchDegraded = true
		return plan, nil
	}

	logger.Debug("Query embedding: %d dimensions", len(embedding))
	plan.Embedding = embedding
	return plan, nil
}

// embedQuery calls the embedding service with the planner's timeout,
// retrying once with backoff when the service is unreachable.
func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.settings.EmbedTimeout)
	defer cancel()

	embedding, err := s.embedder.Embed(embedCtx, query)
	if err == nil {
		return embedding, nil
	}
	if embedCtx.Err() != nil {
		// Timed out; retrying would only burn the query budget.
		return nil, err
	}

	select {
	case <-time.After(collaboratorRetryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	retryCtx, cancelRetry := context.WithTimeout(ctx, s.settings.EmbedTimeout)
	defer cancelRetry()
	return s.embedder.Embed(retryCtx, query)
}
