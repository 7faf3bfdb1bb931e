// Package mcp provides an MCP (Model Context Protocol) server adapter for
// apidex. It lets AI assistants search the API catalog and inspect indexed
// specifications.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
