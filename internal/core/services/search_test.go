package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apidex-labs/apidex/internal/adapters/driven/storage/memory"
	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLexicalIndex implements driven.LexicalIndex for testing.
type mockLexicalIndex struct {
	hits      []driven.LexicalHit
	searchErr error
	indexErr  error
	deleteErr error
	indexed   []string
	deleted   []string
}

func (m *mockLexicalIndex) Index(_ context.Context, doc domain.Document) error {
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, doc.ID)
	return nil
}

func (m *mockLexicalIndex) Delete(_ context.Context, documentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockLexicalIndex) Search(_ context.Context, _ string, _ domain.FilterSet, limit int) ([]driven.LexicalHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:limit], nil
}

func (m *mockLexicalIndex) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	hits      []driven.VectorHit
	searchErr error
	addErr    error
	deleteErr error
	added     []string
	deleted   []string
}

func (m *mockVectorIndex) Add(_ context.Context, chunk domain.Chunk, _ domain.Document) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, chunk.ID)
	return nil
}

func (m *mockVectorIndex) DeleteDocument(_ context.Context, documentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, _ domain.FilterSet, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
	calls     int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockCrossEncoder implements driven.CrossEncoder for testing.
type mockCrossEncoder struct {
	scores   []float64
	scoreErr error
	calls    int
}

func (m *mockCrossEncoder) ScoreBatch(_ context.Context, _ string, texts []string) ([]float64, error) {
	m.calls++
	if m.scoreErr != nil {
		return nil, m.scoreErr
	}
	if m.scores != nil {
		return m.scores, nil
	}
	out := make([]float64, len(texts))
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
}

func (m *mockCrossEncoder) ModelName() string {
	return "mock-encoder"
}

func (m *mockCrossEncoder) Close() error {
	return nil
}

// --- Test helpers ---

func seedDocuments(t *testing.T, store *memory.DocumentStore, docs ...domain.Document) {
	t.Helper()
	ctx := context.Background()
	for i := range docs {
		require.NoError(t, store.SaveDocument(ctx, &docs[i]))
	}
}

func testSettings() domain.EngineSettings {
	s := domain.DefaultEngineSettings()
	// Generous deadline so pipeline stages never race the clock in tests
	// that are not about deadlines.
	s.QueryDeadline = 10 * time.Second
	return s
}

// --- Constructor tests ---

func TestNewSearchService_RequiresDocumentStore(t *testing.T) {
	_, err := NewSearchService(nil, &mockLexicalIndex{}, nil, nil, nil, nil, testSettings())
	assert.Error(t, err)
}

func TestNewSearchService_RequiresLexicalIndex(t *testing.T) {
	_, err := NewSearchService(memory.NewDocumentStore(), nil, nil, nil, nil, nil, testSettings())
	assert.ErrorIs(t, err, domain.ErrLexicalIndexUnavailable)
}

func TestNewSearchService_RejectsInvalidWeights(t *testing.T) {
	settings := testSettings()
	settings.Weights.TextRelevance = 0.9 // sum now exceeds 1

	_, err := NewSearchService(memory.NewDocumentStore(), &mockLexicalIndex{}, nil, nil, nil, nil, settings)
	assert.ErrorIs(t, err, domain.ErrInvalidWeights)
}

// --- Search pipeline tests ---

func TestSearch_EmptyQuery(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, err := NewSearchService(store, &mockLexicalIndex{}, nil, nil, nil, nil, testSettings())
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), "   ", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestSearch_LexicalOnlyWithoutEmbedder(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-1", RawText: "get customer balance"},
		domain.Document{ID: "doc-2", RawText: "update customer balance"},
	)
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 3.2},
		{DocumentID: "doc-2", Score: 1.4},
	}}

	svc, err := NewSearchService(store, lexical, nil, nil, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "customer balance", domain.SearchOptions{})
	require.NoError(t, err)

	assert.True(t, resp.Degraded.VectorSearch)
	assert.True(t, resp.Degraded.Rerank) // no encoder either
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
	assert.Equal(t, "doc-2", resp.Results[1].DocumentID)
}

func TestSearch_HybridMergesBothIndexes(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-1", RawText: "lexical match"},
		domain.Document{ID: "doc-2", RawText: "both match"},
		domain.Document{ID: "doc-3", RawText: "vector match"},
	)
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 2.0},
		{DocumentID: "doc-2", Score: 1.0},
	}}
	vector := &mockVectorIndex{hits: []driven.VectorHit{
		{ChunkID: "chunk-2", DocumentID: "doc-2", Similarity: 0.9},
		{ChunkID: "chunk-3", DocumentID: "doc-3", Similarity: 0.7},
	}}
	embedder := &mockEmbeddingService{embedding: []float32{0.1, 0.2}}

	svc, err := NewSearchService(store, lexical, vector, embedder, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "match", domain.SearchOptions{})
	require.NoError(t, err)

	assert.False(t, resp.Degraded.VectorSearch)
	require.Len(t, resp.Results, 3)

	ids := make(map[string]bool)
	for _, r := range resp.Results {
		ids[r.DocumentID] = true
	}
	assert.True(t, ids["doc-1"])
	assert.True(t, ids["doc-2"])
	assert.True(t, ids["doc-3"])
}

func TestSearch_EmbeddingFailureDegradesToLexical(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store, domain.Document{ID: "doc-1", RawText: "text"})
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{{DocumentID: "doc-1", Score: 1.0}}}
	vector := &mockVectorIndex{hits: []driven.VectorHit{{ChunkID: "c", DocumentID: "doc-x", Similarity: 0.9}}}
	embedder := &mockEmbeddingService{embedErr: errors.New("model down")}

	svc, err := NewSearchService(store, lexical, vector, embedder, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "text", domain.SearchOptions{})
	require.NoError(t, err)

	assert.True(t, resp.Degraded.VectorSearch)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
	// One initial call plus one retry.
	assert.Equal(t, 2, embedder.calls)
}

func TestSearch_VectorSearchErrorDropsVectorHits(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store, domain.Document{ID: "doc-1", RawText: "text"})
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{{DocumentID: "doc-1", Score: 1.0}}}
	vector := &mockVectorIndex{searchErr: errors.New("index offline")}
	embedder := &mockEmbeddingService{embedding: []float32{0.1}}

	svc, err := NewSearchService(store, lexical, vector, embedder, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "text", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
}

func TestSearch_RerankReordersTopCandidates(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-1", RawText: "first"},
		domain.Document{ID: "doc-2", RawText: "second"},
	)
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 2.0},
		{DocumentID: "doc-2", Score: 1.0},
	}}
	// The encoder disagrees with the merge ordering.
	encoder := &mockCrossEncoder{scores: []float64{0.1, 0.9}}

	svc, err := NewSearchService(store, lexical, nil, nil, encoder, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)

	assert.False(t, resp.Degraded.Rerank)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc-2", resp.Results[0].DocumentID)
	assert.Equal(t, "doc-1", resp.Results[1].DocumentID)
	assert.Equal(t, 1, encoder.calls)
}

func TestSearch_EncoderFailureKeepsMergeOrdering(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-1", RawText: "first"},
		domain.Document{ID: "doc-2", RawText: "second"},
	)
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 2.0},
		{DocumentID: "doc-2", Score: 1.0},
	}}
	encoder := &mockCrossEncoder{scoreErr: errors.New("encoder down")}

	svc, err := NewSearchService(store, lexical, nil, nil, encoder, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)

	assert.True(t, resp.Degraded.Rerank)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
	// One initial call plus one retry.
	assert.Equal(t, 2, encoder.calls)
}

func TestSearch_EncoderScoreCountMismatchDegrades(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-1", RawText: "first"},
		domain.Document{ID: "doc-2", RawText: "second"},
	)
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 2.0},
		{DocumentID: "doc-2", Score: 1.0},
	}}
	encoder := &mockCrossEncoder{scores: []float64{0.5}} // one score for two candidates

	svc, err := NewSearchService(store, lexical, nil, nil, encoder, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)
	assert.True(t, resp.Degraded.Rerank)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
}

func TestSearch_MissingDocumentIsIndexCorruption(t *testing.T) {
	store := memory.NewDocumentStore()
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{{DocumentID: "ghost", Score: 1.0}}}

	svc, err := NewSearchService(store, lexical, nil, nil, nil, nil, testSettings())
	require.NoError(t, err)

	_, err = svc.Search(context.Background(), "query", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexCorruption)
}

func TestSearch_LimitBoundsResults(t *testing.T) {
	store := memory.NewDocumentStore()
	hits := make([]driven.LexicalHit, 20)
	for i := range hits {
		id := string(rune('a' + i))
		hits[i] = driven.LexicalHit{DocumentID: "doc-" + id, Score: float64(20 - i)}
		seedDocuments(t, store, domain.Document{ID: "doc-" + id, RawText: "text"})
	}
	lexical := &mockLexicalIndex{hits: hits}

	svc, err := NewSearchService(store, lexical, nil, nil, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)

	// Default limit applies when unset.
	resp, err = svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, DefaultLimit)
}

func TestSearch_NoHitsReturnsEmptyResults(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, err := NewSearchService(store, &mockLexicalIndex{}, nil, nil, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "no matches anywhere", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearch_DeterministicOrdering(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-a", RawText: "equal"},
		domain.Document{ID: "doc-b", RawText: "equal"},
		domain.Document{ID: "doc-c", RawText: "equal"},
	)
	// Identical scores everywhere: ordering must fall back to document ID.
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-c", Score: 1.0},
		{DocumentID: "doc-a", Score: 1.0},
		{DocumentID: "doc-b", Score: 1.0},
	}}

	svc, err := NewSearchService(store, lexical, nil, nil, nil, nil, testSettings())
	require.NoError(t, err)

	var previous []string
	for run := 0; run < 5; run++ {
		resp, err := svc.Search(context.Background(), "equal", domain.SearchOptions{})
		require.NoError(t, err)

		ids := make([]string, len(resp.Results))
		for i, r := range resp.Results {
			ids[i] = r.DocumentID
		}
		if previous != nil {
			assert.Equal(t, previous, ids)
		}
		previous = ids
	}
	assert.Equal(t, []string{"doc-a", "doc-b", "doc-c"}, previous)
}

func TestSearch_DeadlineExpiredReturnsBestEffort(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store,
		domain.Document{ID: "doc-1", RawText: "first"},
		domain.Document{ID: "doc-2", RawText: "second"},
	)
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 2.0},
		{DocumentID: "doc-2", Score: 1.0},
	}}
	encoder := &mockCrossEncoder{scores: []float64{0.1, 0.9}}

	settings := testSettings()
	settings.QueryDeadline = time.Nanosecond

	svc, err := NewSearchService(store, lexical, nil, nil, encoder, nil, settings)
	require.NoError(t, err)

	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)

	assert.True(t, resp.Degraded.Deadline)
	// The merge ordering survives; the encoder never ran.
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
	assert.Equal(t, 0, encoder.calls)
}

// stalledEmbedder never answers; it only unblocks when its context does.
type stalledEmbedder struct {
	mockEmbeddingService
}

func (m *stalledEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearch_DeadlineBoundsQueryPlanning(t *testing.T) {
	store := memory.NewDocumentStore()
	seedDocuments(t, store, domain.Document{ID: "doc-1", RawText: "first"})
	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 1.0},
	}}

	// The embed budget alone would stall the pipeline for far longer than
	// the query deadline; the deadline must cut the embedding call short.
	settings := testSettings()
	settings.QueryDeadline = 20 * time.Millisecond
	settings.EmbedTimeout = 10 * time.Second

	embedder := &stalledEmbedder{mockEmbeddingService{embedding: []float32{0.1}}}
	svc, err := NewSearchService(store, lexical, &mockVectorIndex{}, embedder, nil, nil, settings)
	require.NoError(t, err)

	start := time.Now()
	resp, err := svc.Search(context.Background(), "query", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, resp.Degraded.VectorSearch)
	assert.True(t, resp.Degraded.Deadline)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc-1", resp.Results[0].DocumentID)
}

func TestSearch_CitationsFromChunksAndTermSpans(t *testing.T) {
	store := memory.NewDocumentStore()
	ctx := context.Background()

	raw := "POST /v1/refunds issues a refund for a captured payment."
	seedDocuments(t, store, domain.Document{ID: "doc-1", RawText: raw})
	require.NoError(t, store.SaveChunks(ctx, "doc-1", []domain.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", OffsetStart: 0, OffsetEnd: 16, Text: raw[:16]},
	}))

	lexical := &mockLexicalIndex{hits: []driven.LexicalHit{
		{DocumentID: "doc-1", Score: 1.0, TermSpans: []driven.TermSpan{
			{Term: "refund", Start: 26, End: 32},
		}},
	}}
	vector := &mockVectorIndex{hits: []driven.VectorHit{
		{ChunkID: "chunk-1", DocumentID: "doc-1", Similarity: 0.8},
	}}
	embedder := &mockEmbeddingService{embedding: []float32{0.1}}

	svc, err := NewSearchService(store, lexical, vector, embedder, nil, nil, testSettings())
	require.NoError(t, err)

	resp, err := svc.Search(ctx, "refund", domain.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	citations := resp.Results[0].Citations
	require.Len(t, citations, 2)
	// Ordered by offset: the chunk span first, then the term span.
	assert.Equal(t, "chunk-1", citations[0].ChunkID)
	assert.Equal(t, 0, citations[0].OffsetStart)
	assert.Equal(t, "refund", citations[1].Snippet)
	assert.Equal(t, 26, citations[1].OffsetStart)
	assert.Equal(t, 32, citations[1].OffsetEnd)
}
