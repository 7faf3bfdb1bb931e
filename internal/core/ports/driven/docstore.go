package driven

import (
	"context"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for durable storage, or an in-memory map for tests.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks replaces the chunks of a document.
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document, ordered by offset.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents. Used to rebuild indexes
	// from source after corruption.
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// ProfileStore reads per-document performance telemetry. Profiles are
// written by an external telemetry collector; the engine only reads them.
type ProfileStore interface {
	// GetProfile retrieves the performance profile for a document.
	// Returns domain.ErrNotFound when no telemetry exists yet.
	GetProfile(ctx context.Context, documentID string) (*domain.PerformanceProfile, error)

	// SaveProfile stores or updates a profile. Exposed for the
	// telemetry collector's refresh path.
	SaveProfile(ctx context.Context, profile *domain.PerformanceProfile) error
}
