package services

import (
	"context"
	"sort"

	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/logger"
)

// maxCitationSnippet bounds the snippet length carried per citation.
const maxCitationSnippet = 200

// annotate attaches source-span citations to each result: the chunks that
// contributed its vector hit plus the matched lexical term positions,
// ordered by offset. Citation building fails softly - a lexical-only hit
// with no chunk mapping simply gets an empty list.
func (s *SearchService) annotate(
	ctx context.Context, results []domain.SearchResult, candidates []*candidate,
) {
	byID := make(map[string]*candidate, len(candidates))
	for _, c := range candidates {
		byID[c.documentID] = c
	}

	for i := range results {
		c, ok := byID[results[i].DocumentID]
		if !ok {
			continue
		}
		results[i].Citations = s.buildCitations(ctx, c)
	}
}

// buildCitations collects the spans behind one candidate's hit.
func (s *SearchService) buildCitations(ctx context.Context, c *candidate) []domain.Citation {
	citations := make([]domain.Citation, 0, len(c.chunkIDs)+len(c.termSpans))

	for _, chunkID := range c.chunkIDs {
		chunk, err := s.docStore.GetChunk(ctx, chunkID)
		if err != nil {
			logger.Debug("Citation chunk %s unavailable: %v", chunkID, err)
			continue
		}
		citations = append(citations, domain.Citation{
			ChunkID:     chunk.ID,
			OffsetStart: chunk.OffsetStart,
			OffsetEnd:   chunk.OffsetEnd,
			Snippet:     truncateSnippet(chunk.Text),
		})
	}

	for _, span := range c.termSpans {
		snippet := ""
		if c.doc != nil && span.Start >= 0 && span.End <= len(c.doc.RawText) {
			snippet = c.doc.RawText[span.Start:span.End]
		}
		citations = append(citations, domain.Citation{
			OffsetStart: span.Start,
			OffsetEnd:   span.End,
			Snippet:     snippet,
		})
	}

	sort.SliceStable(citations, func(i, j int) bool {
		if citations[i].OffsetStart != citations[j].OffsetStart {
			return citations[i].OffsetStart < citations[j].OffsetStart
		}
		return citations[i].OffsetEnd < citations[j].OffsetEnd
	})

	return citations
}

func truncateSnippet(text string) string {
	if len(text) <= maxCitationSnippet {
		return text
	}
	return text[:maxCitationSnippet] + "..."
}
