package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			response: &domain.SearchResponse{
				Results: []domain.SearchResult{
					{
						DocumentID: "payments-refund-v2",
						Document: domain.Document{
							ID:          "payments-refund-v2",
							SourceType:  domain.SourceTypeREST,
							OwnerSystem: "payments",
							Environment: domain.EnvironmentProd,
							Region:      "eu",
						},
						FinalScore: 0.87,
						Components: domain.ComponentScores{TextRelevance: 1.0},
						Citations: []domain.Citation{
							{ChunkID: "chunk-1", OffsetStart: 0, OffsetEnd: 12, Snippet: "POST /refund"},
						},
					},
				},
			},
		}

		ports := &Ports{Search: mockSearch}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{Query: "refund a payment", Limit: 10}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "payments-refund-v2", output.Results[0].DocumentID)
		assert.Equal(t, "rest", output.Results[0].SourceType)
		assert.Equal(t, "payments", output.Results[0].OwnerSystem)
		assert.Equal(t, "prod", output.Results[0].Environment)
		assert.Equal(t, 0.87, output.Results[0].Score)
		assert.Equal(t, "POST /refund", output.Results[0].Snippet)
		assert.Empty(t, output.Degraded)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		ports := &Ports{Search: mockSearch}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{Query: "test", Limit: 0}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, 10, mockSearch.lastOpts.Limit)
	})

	t.Run("filters and user context are forwarded", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		ports := &Ports{Search: mockSearch}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{
			Query:        "orders",
			Environment:  "prod",
			Region:       "eu",
			ExcludePII:   true,
			WithinScopes: []string{"orders:read"},
			UserScopes:   []string{"orders:read", "orders:write"},
			UserRegion:   "eu",
		}
		_, _, err = server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, domain.EnvironmentProd, mockSearch.lastOpts.Filters.Environment)
		assert.Equal(t, "eu", mockSearch.lastOpts.Filters.Region)
		assert.True(t, mockSearch.lastOpts.Filters.ExcludePII)
		assert.Equal(t, []string{"orders:read"}, mockSearch.lastOpts.Filters.WithinScopes)
		assert.Equal(t, []string{"orders:read", "orders:write"}, mockSearch.lastOpts.User.GrantedScopes)
		assert.Equal(t, "eu", mockSearch.lastOpts.User.Region)
	})

	t.Run("degraded stages are surfaced by name", func(t *testing.T) {
		mockSearch := &mockSearchService{
			response: &domain.SearchResponse{
				Degraded: domain.Degradation{VectorSearch: true, Rerank: true},
			},
		}
		ports := &Ports{Search: mockSearch}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, []string{"vector_search", "rerank"}, output.Degraded)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{
			err: errors.New("search failed"),
		}

		ports := &Ports{Search: mockSearch}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{Query: "test"}
		_, _, err = server.handleSearch(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleIndexDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes the document", func(t *testing.T) {
		ingest := &mockIngestService{}
		ports := &Ports{Search: &mockSearchService{}, Ingest: ingest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := IndexDocumentInput{
			ID:          "orders-list-v1",
			SourceType:  "rest",
			Environment: "prod",
			RawText:     "GET /orders lists orders",
		}
		_, output, err := server.handleIndexDocument(ctx, nil, input)

		require.NoError(t, err)
		assert.True(t, output.Indexed)
		assert.Equal(t, "orders-list-v1", output.DocumentID)
		require.Len(t, ingest.indexed, 1)
		assert.Equal(t, domain.SourceTypeREST, ingest.indexed[0].SourceType)
		assert.False(t, ingest.indexed[0].LastUpdatedAt.IsZero())
	})

	t.Run("errors without ingest service", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleIndexDocument(ctx, nil, IndexDocumentInput{ID: "doc-1"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not available")
	})

	t.Run("propagates ingest errors", func(t *testing.T) {
		ingest := &mockIngestService{err: domain.ErrInvalidInput}
		ports := &Ports{Search: &mockSearchService{}, Ingest: ingest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleIndexDocument(ctx, nil, IndexDocumentInput{ID: "doc-1"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleRemoveDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the document", func(t *testing.T) {
		ingest := &mockIngestService{}
		ports := &Ports{Search: &mockSearchService{}, Ingest: ingest}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleRemoveDocument(ctx, nil, RemoveDocumentInput{ID: "doc-1"})

		require.NoError(t, err)
		assert.True(t, output.Removed)
		assert.Equal(t, []string{"doc-1"}, ingest.removed)
	})

	t.Run("errors without ingest service", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleRemoveDocument(ctx, nil, RemoveDocumentInput{ID: "doc-1"})

		require.Error(t, err)
	})
}
