// Package chunker splits document text into fixed-size, overlapping chunks
// with byte offsets preserved for citation.
package chunker

import (
	"github.com/google/uuid"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// DefaultChunkSize is the default number of bytes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping bytes.
const DefaultChunkOverlap = 200

// Chunker splits document raw text into fixed-size chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split chunks the document's raw text. Offsets of every chunk are valid
// spans within RawText. Empty text produces no chunks.
func (c *Chunker) Split(doc domain.Document) []domain.Chunk {
	if doc.RawText == "" {
		return nil
	}

	text := doc.RawText
	textLen := len(text)

	estimated := (textLen / (c.chunkSize - c.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for start < textLen {
		end := start + c.chunkSize
		if end > textLen {
			end = textLen
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			OffsetStart: start,
			OffsetEnd:   end,
			Text:        text[start:end],
		})

		start += c.chunkSize - c.overlap
		if c.chunkSize <= c.overlap {
			break
		}
	}

	return chunks
}
