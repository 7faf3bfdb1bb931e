package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
	"github.com/apidex-labs/apidex/internal/core/ports/driving"
	"github.com/apidex-labs/apidex/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultLimit is the result count used when the caller does not set one.
const DefaultLimit = 10

// candidate holds intermediate pipeline state for one document.
type candidate struct {
	documentID  string
	doc         *domain.Document
	mergeScore  float64
	rerankScore float64
	chunkIDs    []string          // vector-contributing chunks, best first
	termSpans   []driven.TermSpan // lexical term matches
}

// SearchService runs the hybrid retrieval-and-ranking pipeline.
type SearchService struct {
	docStore driven.DocumentStore
	lexical  driven.LexicalIndex
	vector   driven.VectorIndex
	embedder driven.EmbeddingService
	encoder  driven.CrossEncoder
	profiles driven.ProfileStore
	settings domain.EngineSettings

	// now is swappable for deterministic freshness scoring in tests.
	now func() time.Time
}

// NewSearchService creates a new search service. The embedder, encoder and
// profiles parameters are optional (can be nil); the pipeline degrades
// per stage when they are absent.
func NewSearchService(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	encoder driven.CrossEncoder,
	profiles driven.ProfileStore,
	settings domain.EngineSettings,
) (*SearchService, error) {
	if docStore == nil {
		return nil, errors.New("document store is required")
	}
	if lexical == nil {
		return nil, domain.ErrLexicalIndexUnavailable
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("engine settings: %w", err)
	}
	return &SearchService{
		docStore: docStore,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		encoder:  encoder,
		profiles: profiles,
		settings: settings,
		now:      time.Now,
	}, nil
}

// Search runs the full pipeline for one query.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	// The overall deadline propagates to every sub-stage, planning
	// included, so the embedding budget cannot overrun the query budget.
	// Stages check it between steps and fall back to the last completed
	// ordering.
	if s.settings.QueryDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.QueryDeadline)
		defer cancel()
	}

	plan, err := s.plan(ctx, query, opts.Filters)
	if err != nil {
		return nil, err
	}

	degraded := domain.Degradation{VectorSearch: plan.VectorSearchDegraded}

	lexicalHits, vectorHits := s.retrieve(ctx, plan)
	logger.Debug("Retrieval: %d lexical hits, %d vector hits", len(lexicalHits), len(vectorHits))

	candidates := mergeCandidates(lexicalHits, vectorHits, s.settings.MergeCap)
	logger.Debug("Merged to %d candidates", len(candidates))

	if err := s.hydrate(ctx, candidates); err != nil {
		return nil, err
	}

	if deadlineExpired(ctx) {
		logger.Warn("Query deadline expired before re-ranking, returning merge ordering")
		degraded.Deadline = true
		return s.bestEffort(ctx, candidates, opts, limit, degraded), nil
	}

	reranked, rerankDegraded := s.rerank(ctx, plan.Text, candidates)
	degraded.Rerank = rerankDegraded

	if deadlineExpired(ctx) {
		logger.Warn("Query deadline expired before signal ranking, returning re-rank ordering")
		degraded.Deadline = true
		return s.bestEffort(ctx, reranked, opts, limit, degraded), nil
	}

	results := s.signalRank(ctx, reranked, opts.User)
	if len(results) > limit {
		results = results[:limit]
	}

	s.annotate(ctx, results, reranked)

	logger.Info("Final results: %d (degraded: vector=%t rerank=%t)",
		len(results), degraded.VectorSearch, degraded.Rerank)

	return &domain.SearchResponse{Results: results, Degraded: degraded}, nil
}

// retrieve runs lexical and vector searches concurrently. They are
// independent reads; the merge stage is the synchronisation point.
func (s *SearchService) retrieve(
	ctx context.Context, plan domain.PlannedQuery,
) ([]driven.LexicalHit, []driven.VectorHit) {
	var (
		lexicalHits []driven.LexicalHit
		vectorHits  []driven.VectorHit
		lexicalErr  error
		vectorErr   error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		lexicalHits, lexicalErr = s.lexical.Search(ctx, plan.Text, plan.Filters, s.settings.MergeCap)
	}()

	go func() {
		defer wg.Done()
		if plan.Embedding == nil || s.vector == nil {
			return
		}
		vectorHits, vectorErr = s.vector.Search(ctx, plan.Embedding, plan.Filters, s.settings.MergeCap)
	}()

	wg.Wait()

	if lexicalErr != nil {
		logger.Warn("Lexical search failed: %v", lexicalErr)
		lexicalHits = nil
	}
	if vectorErr != nil {
		logger.Warn("Vector search failed: %v", vectorErr)
		vectorHits = nil
	}

	return lexicalHits, vectorHits
}

// hydrate loads the document record for every candidate. A posting that
// references a missing document is an index invariant violation.
func (s *SearchService) hydrate(ctx context.Context, candidates []*candidate) error {
	for _, c := range candidates {
		doc, err := s.docStore.GetDocument(ctx, c.documentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: posting references missing document %s",
					domain.ErrIndexCorruption, c.documentID)
			}
			return fmt.Errorf("get document %s: %w", c.documentID, err)
		}
		c.doc = doc
	}
	return nil
}

// bestEffort builds a response from whatever ordering the last completed
// stage produced. Used when the overall deadline expires mid-pipeline.
func (s *SearchService) bestEffort(
	ctx context.Context, candidates []*candidate, opts domain.SearchOptions,
	limit int, degraded domain.Degradation,
) *domain.SearchResponse {
	results := s.signalRank(ctx, candidates, opts.User)
	if len(results) > limit {
		results = results[:limit]
	}
	s.annotate(ctx, results, candidates)
	return &domain.SearchResponse{Results: results, Degraded: degraded}
}

// deadlineExpired reports whether the query context has been cancelled or
// its deadline exceeded.
func deadlineExpired(ctx context.Context) bool {
	return ctx.Err() != nil
}
