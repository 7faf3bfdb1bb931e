package services

import (
	"context"
	"sort"
	"time"

	"github.com/apidex-labs/apidex/internal/logger"
)

// rerank rescales candidate relevance with a cross-encoder. The whole
// top-N is scored in a single batch call; on timeout or failure the
// merge-stage ordering passes through unchanged and the output is marked
// degraded. Returns at most topN candidates either way.
func (s *SearchService) rerank(
	ctx context.Context, query string, candidates []*candidate,
) ([]*candidate, bool) {
	topN := s.settings.RerankTopN
	if len(candidates) < topN {
		topN = len(candidates)
	}
	top := candidates[:topN]
	if topN == 0 {
		return top, false
	}

	if s.encoder == nil {
		logger.Debug("No cross-encoder configured, keeping merge ordering")
		return top, true
	}

	texts := make([]string, len(top))
	for i, c := range top {
		texts[i] = c.doc.RawText
	}

	scores, err := s.scoreBatch(ctx, query, texts)
	if err != nil {
		logger.Warn("Cross-encoder scoring failed: %v (keeping merge ordering)", err)
		return top, true
	}
	if len(scores) != len(top) {
		logger.Warn("Cross-encoder returned %d scores for %d candidates (keeping merge ordering)",
			len(scores), len(top))
		return top, true
	}

	for i, c := range top {
		c.rerankScore = scores[i]
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].rerankScore != top[j].rerankScore {
			return top[i].rerankScore > top[j].rerankScore
		}
		return top[i].documentID < top[j].documentID
	})

	return top, false
}

// scoreBatch calls the cross-encoder with the re-rank timeout, retrying
// once with backoff when the service is unreachable.
func (s *SearchService) scoreBatch(
	ctx context.Context, query string, texts []string,
) ([]float64, error) {
	scoreCtx, cancel := context.WithTimeout(ctx, s.settings.RerankTimeout)
	defer cancel()

	scores, err := s.encoder.ScoreBatch(scoreCtx, query, texts)
	if err == nil {
		return scores, nil
	}
	if scoreCtx.Err() != nil {
		return nil, err
	}

	select {
	case <-time.After(collaboratorRetryBackoff):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	retryCtx, cancelRetry := context.WithTimeout(ctx, s.settings.RerankTimeout)
	defer cancelRetry()
	return s.encoder.ScoreBatch(retryCtx, query, texts)
}
