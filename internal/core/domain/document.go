package domain

import "time"

// SourceType identifies the kind of API specification a document came from.
type SourceType string

// Known source types.
const (
	SourceTypeREST     SourceType = "rest"
	SourceTypeGraphQL  SourceType = "graphql"
	SourceTypeSOAP     SourceType = "soap"
	SourceTypeAsyncAPI SourceType = "asyncapi"
	SourceTypeLegacy   SourceType = "legacy"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeREST, SourceTypeGraphQL, SourceTypeSOAP, SourceTypeAsyncAPI, SourceTypeLegacy:
		return true
	default:
		return false
	}
}

// Environment identifies the deployment stage a document describes.
type Environment string

// Known environments.
const (
	EnvironmentDev     Environment = "dev"
	EnvironmentStaging Environment = "staging"
	EnvironmentProd    Environment = "prod"
)

// IsValid returns true if the environment is recognised.
func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentDev, EnvironmentStaging, EnvironmentProd:
		return true
	default:
		return false
	}
}

// Document represents one normalised API specification unit (a single REST,
// GraphQL, SOAP or AsyncAPI endpoint, or a documentation fragment).
//
// The ID is globally unique and immutable once indexed: re-ingestion of the
// same logical endpoint updates content but preserves the ID.
type Document struct {
	// ID is the stable, unique identifier for the document.
	ID string

	// SourceType is the kind of specification this document came from.
	SourceType SourceType

	// OwnerSystem is the system that owns the endpoint.
	OwnerSystem string

	// Environment is the deployment stage (dev, staging, prod).
	Environment Environment

	// Region is the deployment region (e.g. "us", "eu"). May be empty.
	Region string

	// PIIFlag indicates the endpoint handles personally identifiable data.
	PIIFlag bool

	// RequiredScopes are the OAuth scopes a caller needs to invoke
	// the endpoint.
	RequiredScopes []string

	// LastUpdatedAt is when the source specification last changed.
	LastUpdatedAt time.Time

	// RawText is the full normalised text used for lexical indexing.
	RawText string
}

// Chunk is a sub-span of a Document's RawText, the unit of embedding and
// citation. Every chunk belongs to exactly one document; offsets are valid
// spans within the document's RawText.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// OffsetStart is the byte offset of the chunk within RawText.
	OffsetStart int

	// OffsetEnd is the exclusive end offset within RawText.
	OffsetEnd int

	// Text is the chunk's text content.
	Text string

	// Embedding is the dense vector representation for semantic search.
	Embedding []float32
}

// Validate checks the chunk's offsets against the owning document.
func (c Chunk) Validate(doc Document) error {
	if c.DocumentID != doc.ID {
		return ErrInvalidInput
	}
	if c.OffsetStart < 0 || c.OffsetEnd < c.OffsetStart || c.OffsetEnd > len(doc.RawText) {
		return ErrInvalidInput
	}
	return nil
}
