// Package domain contains the core business entities for the Apidex
// retrieval-and-ranking engine: documents, chunks, filters, user context,
// scoring configuration, and search results.
//
// Domain types have no dependencies on adapters or infrastructure.
package domain
