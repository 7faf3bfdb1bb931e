// Package services implements the core ranking pipeline behind the driving
// ports: query planning, parallel lexical and vector retrieval, candidate
// merging, cross-encoder re-ranking, multi-signal scoring, and citation
// building, plus the ingestion-facing service that feeds both indexes.
//
// Services depend only on domain types and driven ports; all infrastructure
// lives behind adapters.
package services
