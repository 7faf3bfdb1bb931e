package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query        string   `json:"query" jsonschema:"natural language query describing the API capability to find"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Environment  string   `json:"environment,omitempty" jsonschema:"restrict to one environment: dev, staging or prod"`
	Region       string   `json:"region,omitempty" jsonschema:"restrict to one deployment region"`
	ExcludePII   bool     `json:"exclude_pii,omitempty" jsonschema:"drop endpoints that handle personal data"`
	WithinScopes []string `json:"within_scopes,omitempty" jsonschema:"keep only endpoints whose required scopes are within this set"`
	UserScopes   []string `json:"user_scopes,omitempty" jsonschema:"OAuth scopes held by the caller, for permission-fit scoring"`
	UserRegion   string   `json:"user_region,omitempty" jsonschema:"caller's home region, for geography scoring"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Degraded []string             `json:"degraded,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID  string                 `json:"document_id"`
	SourceType  string                 `json:"source_type"`
	OwnerSystem string                 `json:"owner_system,omitempty"`
	Environment string                 `json:"environment"`
	Region      string                 `json:"region,omitempty"`
	Score       float64                `json:"score"`
	Components  domain.ComponentScores `json:"components"`
	Snippet     string                 `json:"snippet,omitempty"`
}

// IndexDocumentInput is the input schema for the index_document tool.
type IndexDocumentInput struct {
	ID             string   `json:"id" jsonschema:"stable unique document identifier"`
	SourceType     string   `json:"source_type" jsonschema:"rest, graphql, soap, asyncapi or legacy"`
	OwnerSystem    string   `json:"owner_system,omitempty" jsonschema:"system that owns the endpoint"`
	Environment    string   `json:"environment" jsonschema:"dev, staging or prod"`
	Region         string   `json:"region,omitempty" jsonschema:"deployment region"`
	PIIFlag        bool     `json:"pii_flag,omitempty" jsonschema:"endpoint handles personally identifiable data"`
	RequiredScopes []string `json:"required_scopes,omitempty" jsonschema:"OAuth scopes required to call the endpoint"`
	RawText        string   `json:"raw_text" jsonschema:"full normalised specification text"`
}

// IndexDocumentOutput is the output schema for the index_document tool.
type IndexDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Indexed    bool   `json:"indexed"`
}

// RemoveDocumentInput is the input schema for the remove_document tool.
type RemoveDocumentInput struct {
	ID string `json:"id" jsonschema:"document identifier to remove"`
}

// RemoveDocumentOutput is the output schema for the remove_document tool.
type RemoveDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Removed    bool   `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the API catalog with hybrid keyword and semantic retrieval",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Index a normalised API specification document",
	}, s.handleIndexDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document from the catalog and both indexes",
	}, s.handleRemoveDocument)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := domain.SearchOptions{
		Limit: limit,
		Filters: domain.FilterSet{
			Environment:  domain.Environment(input.Environment),
			Region:       input.Region,
			ExcludePII:   input.ExcludePII,
			WithinScopes: input.WithinScopes,
		},
		User: domain.UserContext{
			GrantedScopes: input.UserScopes,
			Region:        input.UserRegion,
		},
	}

	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(resp.Results)),
		Count:    len(resp.Results),
		Degraded: degradedStages(resp.Degraded),
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		snippet := ""
		if len(r.Citations) > 0 {
			snippet = r.Citations[0].Snippet
		}
		output.Results[i] = SearchResultOutput{
			DocumentID:  r.DocumentID,
			SourceType:  string(r.Document.SourceType),
			OwnerSystem: r.Document.OwnerSystem,
			Environment: string(r.Document.Environment),
			Region:      r.Document.Region,
			Score:       r.FinalScore,
			Components:  r.Components,
			Snippet:     snippet,
		}
	}

	return nil, output, nil
}

// handleIndexDocument handles the index_document tool invocation.
func (s *Server) handleIndexDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexDocumentInput,
) (*mcp.CallToolResult, IndexDocumentOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IndexDocumentOutput{}, errors.New("ingest service not available")
	}

	doc := domain.Document{
		ID:             input.ID,
		SourceType:     domain.SourceType(input.SourceType),
		OwnerSystem:    input.OwnerSystem,
		Environment:    domain.Environment(input.Environment),
		Region:         input.Region,
		PIIFlag:        input.PIIFlag,
		RequiredScopes: input.RequiredScopes,
		LastUpdatedAt:  time.Now().UTC(),
		RawText:        input.RawText,
	}

	if err := s.ports.Ingest.IndexDocument(ctx, doc); err != nil {
		return nil, IndexDocumentOutput{}, err
	}

	return nil, IndexDocumentOutput{DocumentID: input.ID, Indexed: true}, nil
}

// handleRemoveDocument handles the remove_document tool invocation.
func (s *Server) handleRemoveDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveDocumentInput,
) (*mcp.CallToolResult, RemoveDocumentOutput, error) {
	if s.ports.Ingest == nil {
		return nil, RemoveDocumentOutput{}, errors.New("ingest service not available")
	}

	if err := s.ports.Ingest.RemoveDocument(ctx, input.ID); err != nil {
		return nil, RemoveDocumentOutput{}, err
	}

	return nil, RemoveDocumentOutput{DocumentID: input.ID, Removed: true}, nil
}

// degradedStages lists the degraded pipeline stages by name.
func degradedStages(d domain.Degradation) []string {
	var stages []string
	if d.VectorSearch {
		stages = append(stages, "vector_search")
	}
	if d.Rerank {
		stages = append(stages, "rerank")
	}
	if d.Deadline {
		stages = append(stages, "deadline")
	}
	return stages
}
