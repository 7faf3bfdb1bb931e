package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apidex-labs/apidex/internal/chunker"
	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
	"github.com/apidex-labs/apidex/internal/core/ports/driving"
	"github.com/apidex-labs/apidex/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService persists documents, chunks and embeds their text, and
// keeps the lexical and vector indexes in step with the document store.
type IngestService struct {
	docStore driven.DocumentStore
	lexical  driven.LexicalIndex
	vector   driven.VectorIndex
	embedder driven.EmbeddingService
	splitter *chunker.Chunker

	// locks serialises concurrent updates to the same document.
	// Updates to different documents proceed concurrently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIngestService creates a new ingestion service. The vector index and
// embedder are optional; without them documents are lexically indexed only.
func NewIngestService(
	docStore driven.DocumentStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	splitter *chunker.Chunker,
) (*IngestService, error) {
	if docStore == nil {
		return nil, errors.New("document store is required")
	}
	if lexical == nil {
		return nil, domain.ErrLexicalIndexUnavailable
	}
	if splitter == nil {
		splitter = chunker.New()
	}
	return &IngestService{
		docStore: docStore,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		splitter: splitter,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serialising writes for one document ID.
func (s *IngestService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// IndexDocument stores a document, rebuilds its chunks and embeddings,
// and updates both indexes. Re-ingesting an existing ID replaces content
// while preserving the ID.
func (s *IngestService) IndexDocument(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if doc.SourceType != "" && !doc.SourceType.IsValid() {
		return fmt.Errorf("%w: unknown source type %q", domain.ErrInvalidInput, doc.SourceType)
	}
	if doc.Environment != "" && !doc.Environment.IsValid() {
		return fmt.Errorf("%w: unknown environment %q", domain.ErrInvalidInput, doc.Environment)
	}

	lock := s.lockFor(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	logger.Debug("Indexing document %s (%d bytes)", doc.ID, len(doc.RawText))

	if err := s.docStore.SaveDocument(ctx, &doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}

	chunks := s.splitter.Split(doc)
	if err := s.embedChunks(ctx, chunks); err != nil {
		logger.Warn("Embedding chunks for %s failed: %v (document remains lexical-only)", doc.ID, err)
		for i := range chunks {
			chunks[i].Embedding = nil
		}
	}

	if err := s.docStore.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("save chunks for %s: %w", doc.ID, err)
	}

	if err := s.lexical.Index(ctx, doc); err != nil {
		return fmt.Errorf("lexical index %s: %w", doc.ID, err)
	}

	if s.vector != nil {
		// Replace rather than accumulate vectors on re-ingestion.
		if err := s.vector.DeleteDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("clear vectors for %s: %w", doc.ID, err)
		}
		for _, chunk := range chunks {
			if chunk.Embedding == nil {
				continue
			}
			if err := s.vector.Add(ctx, chunk, doc); err != nil {
				return fmt.Errorf("vector index chunk %s: %w", chunk.ID, err)
			}
		}
	}

	logger.Info("Indexed document %s: %d chunks", doc.ID, len(chunks))
	return nil
}

// IndexChunk adds one pre-chunked span of an already-indexed document.
func (s *IngestService) IndexChunk(ctx context.Context, chunk domain.Chunk) error {
	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: chunk document ID is required", domain.ErrInvalidInput)
	}

	lock := s.lockFor(chunk.DocumentID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.docStore.GetDocument(ctx, chunk.DocumentID)
	if err != nil {
		return fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
	}
	if err := chunk.Validate(*doc); err != nil {
		return fmt.Errorf("chunk %s: %w", chunk.ID, err)
	}

	if chunk.Embedding == nil && s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}
		chunk.Embedding = embedding
	}

	existing, err := s.docStore.GetChunks(ctx, chunk.DocumentID)
	if err != nil {
		return fmt.Errorf("get chunks for %s: %w", chunk.DocumentID, err)
	}
	replaced := false
	for i := range existing {
		if existing[i].ID == chunk.ID {
			existing[i] = chunk
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, chunk)
	}
	if err := s.docStore.SaveChunks(ctx, chunk.DocumentID, existing); err != nil {
		return fmt.Errorf("save chunks for %s: %w", chunk.DocumentID, err)
	}

	if s.vector != nil && chunk.Embedding != nil {
		if err := s.vector.Add(ctx, chunk, *doc); err != nil {
			return fmt.Errorf("vector index chunk %s: %w", chunk.ID, err)
		}
	}

	return nil
}

// RemoveDocument deletes a document from storage and both indexes.
func (s *IngestService) RemoveDocument(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := s.lexical.Delete(ctx, id); err != nil {
		return fmt.Errorf("lexical delete %s: %w", id, err)
	}
	if s.vector != nil {
		if err := s.vector.DeleteDocument(ctx, id); err != nil {
			return fmt.Errorf("vector delete %s: %w", id, err)
		}
	}
	if err := s.docStore.DeleteDocument(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	logger.Info("Removed document %s", id)
	return nil
}

// RebuildIndexes re-feeds both indexers from the document store. This is
// the recovery path for index corruption: rebuild from source rather
// than serve corrupt results.
func (s *IngestService) RebuildIndexes(ctx context.Context) error {
	logger.Section("Index Rebuild")

	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for i := range docs {
		doc := docs[i]
		lock := s.lockFor(doc.ID)
		lock.Lock()

		if err := s.lexical.Index(ctx, doc); err != nil {
			lock.Unlock()
			return fmt.Errorf("lexical rebuild %s: %w", doc.ID, err)
		}

		if s.vector != nil {
			if err := s.vector.DeleteDocument(ctx, doc.ID); err != nil {
				lock.Unlock()
				return fmt.Errorf("clear vectors for %s: %w", doc.ID, err)
			}
			chunks, err := s.docStore.GetChunks(ctx, doc.ID)
			if err != nil {
				lock.Unlock()
				return fmt.Errorf("get chunks for %s: %w", doc.ID, err)
			}
			for _, chunk := range chunks {
				if chunk.Embedding == nil {
					continue
				}
				if err := s.vector.Add(ctx, chunk, doc); err != nil {
					lock.Unlock()
					return fmt.Errorf("vector rebuild chunk %s: %w", chunk.ID, err)
				}
			}
		}

		lock.Unlock()
	}

	logger.Info("Rebuilt indexes from %d documents", len(docs))
	return nil
}

// embedChunks batch-embeds all chunk texts in one collaborator call.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if s.embedder == nil || len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return nil
}
