package chunker

import (
	"strings"
	"testing"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, c.chunkSize)
		}
		if c.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, c.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		c := New(WithChunkSize(500))
		if c.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", c.chunkSize)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := New(WithChunkSize(100), WithOverlap(150))
		if c.overlap >= c.chunkSize {
			t.Error("overlap should be reduced when it exceeds chunk size")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		c := New(WithChunkSize(0), WithOverlap(-1))
		if c.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", c.chunkSize)
		}
	})
}

func TestChunker_Split(t *testing.T) {
	t.Run("empty text produces no chunks", func(t *testing.T) {
		chunks := New().Split(domain.Document{ID: "doc-1"})
		if chunks != nil {
			t.Errorf("expected nil chunks, got %d", len(chunks))
		}
	})

	t.Run("short text produces one full-span chunk", func(t *testing.T) {
		doc := domain.Document{ID: "doc-1", RawText: "get customer balance"}
		chunks := New().Split(doc)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if chunks[0].OffsetStart != 0 || chunks[0].OffsetEnd != len(doc.RawText) {
			t.Errorf("unexpected span [%d,%d)", chunks[0].OffsetStart, chunks[0].OffsetEnd)
		}
		if chunks[0].Text != doc.RawText {
			t.Errorf("chunk text does not match raw text")
		}
	})

	t.Run("offsets index back into raw text", func(t *testing.T) {
		doc := domain.Document{ID: "doc-1", RawText: strings.Repeat("abcde ", 500)}
		chunks := New(WithChunkSize(100), WithOverlap(20)).Split(doc)
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(chunks))
		}
		for i, chunk := range chunks {
			if chunk.DocumentID != doc.ID {
				t.Errorf("chunk %d has wrong document ID", i)
			}
			if doc.RawText[chunk.OffsetStart:chunk.OffsetEnd] != chunk.Text {
				t.Errorf("chunk %d text does not match its span", i)
			}
			if err := chunk.Validate(doc); err != nil {
				t.Errorf("chunk %d failed validation: %v", i, err)
			}
		}
	})

	t.Run("consecutive chunks overlap", func(t *testing.T) {
		doc := domain.Document{ID: "doc-1", RawText: strings.Repeat("x", 250)}
		chunks := New(WithChunkSize(100), WithOverlap(20)).Split(doc)
		for i := 1; i < len(chunks); i++ {
			if chunks[i].OffsetStart >= chunks[i-1].OffsetEnd {
				t.Errorf("chunks %d and %d do not overlap", i-1, i)
			}
		}
	})
}
