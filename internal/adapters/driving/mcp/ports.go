package mcp

import (
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
	"github.com/apidex-labs/apidex/internal/core/ports/driving"
)

// Ports aggregates the port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides ranked retrieval.
	Search driving.SearchService

	// Ingest allows assistants to index and remove documents. Optional;
	// the related tools report an error when absent.
	Ingest driving.IngestService

	// Documents backs the catalog resources. Optional; the resources
	// return empty listings when absent.
	Documents driven.DocumentStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Ingest and Documents are optional.
	return nil
}
