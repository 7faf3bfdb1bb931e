// Package lexical provides an in-process BM25 inverted index with
// per-document filter bitmaps. Filters are applied while walking postings,
// not as a post-filter on scored results, so filtered-out documents never
// compete for the limit slots.
package lexical

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/apidex-labs/apidex/internal/adapters/driven/index/filter"
	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.LexicalIndex = (*Index)(nil)

// BM25 parameter defaults.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// maxSpansPerTerm bounds recorded term occurrences per document term.
const maxSpansPerTerm = 8

// posting records one document's occurrence data for a term.
type posting struct {
	termFreq int
	spans    []driven.TermSpan
}

// docEntry holds per-document state: token count for length normalisation,
// the freshness tie-break timestamp, and the bitmap the filter
// intersection runs against.
type docEntry struct {
	length    int
	updatedAt time.Time
	bitmap    filter.Bitmap
}

// Option configures the index.
type Option func(*Index)

// WithParameters overrides the BM25 k1 and b parameters.
func WithParameters(k1, b float64) Option {
	return func(idx *Index) {
		if k1 > 0 {
			idx.k1 = k1
		}
		if b >= 0 && b <= 1 {
			idx.b = b
		}
	}
}

// Index is an inverted index over document raw text.
//
// Writes replace one document's postings atomically under the write lock;
// a concurrent search sees either the pre- or post-update state of that
// document, never a torn intermediate.
type Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	postings  map[string]map[string]*posting // term -> documentID -> posting
	docTerms  map[string][]string            // documentID -> terms it contributes
	docs     map[string]docEntry
	totalLen int
	filters  *filter.Table
}

// New creates an empty lexical index.
func New(opts ...Option) *Index {
	idx := &Index{
		k1:        DefaultK1,
		b:         DefaultB,
		postings: make(map[string]map[string]*posting),
		docTerms: make(map[string][]string),
		docs:     make(map[string]docEntry),
		filters:  filter.NewTable(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Index adds or updates a document. Only the document's own postings are
// rebuilt; the rest of the index is untouched.
func (idx *Index) Index(_ context.Context, doc domain.Document) error {
	tokens := tokenize(doc.RawText)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(doc.ID)

	perTerm := make(map[string]*posting)
	for _, tok := range tokens {
		p, ok := perTerm[tok.term]
		if !ok {
			p = &posting{}
			perTerm[tok.term] = p
		}
		p.termFreq++
		if len(p.spans) < maxSpansPerTerm {
			p.spans = append(p.spans, driven.TermSpan{Term: tok.term, Start: tok.start, End: tok.end})
		}
	}

	terms := make([]string, 0, len(perTerm))
	for term, p := range perTerm {
		docPostings, ok := idx.postings[term]
		if !ok {
			docPostings = make(map[string]*posting)
			idx.postings[term] = docPostings
		}
		docPostings[doc.ID] = p
		terms = append(terms, term)
	}

	idx.docTerms[doc.ID] = terms
	idx.docs[doc.ID] = docEntry{
		length:    len(tokens),
		updatedAt: doc.LastUpdatedAt,
		bitmap:    idx.filters.BitmapFor(doc),
	}
	idx.totalLen += len(tokens)

	return nil
}

// Delete removes a document from the index.
func (idx *Index) Delete(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(documentID)
	return nil
}

// removeLocked drops one document's postings. Caller holds the write lock.
func (idx *Index) removeLocked(documentID string) {
	entry, ok := idx.docs[documentID]
	if !ok {
		return
	}
	for _, term := range idx.docTerms[documentID] {
		docPostings := idx.postings[term]
		delete(docPostings, documentID)
		if len(docPostings) == 0 {
			delete(idx.postings, term)
		}
	}
	delete(idx.docTerms, documentID)
	delete(idx.docs, documentID)
	idx.totalLen -= entry.length
}

// Search scores documents matching any query term with BM25, intersecting
// each postings walk with the compiled filter bitmap. Results are ordered
// by descending score; ties break by LastUpdatedAt descending (freshest
// first), then documentID ascending.
func (idx *Index) Search(
	_ context.Context, text string, filters domain.FilterSet, limit int,
) ([]driven.LexicalHit, error) {
	terms := queryTerms(text)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	totalDocs := len(idx.docs)
	if totalDocs == 0 {
		return nil, nil
	}
	avgLen := float64(idx.totalLen) / float64(totalDocs)
	if avgLen == 0 {
		avgLen = 1
	}

	compiled := idx.filters.Compile(filters)

	scores := make(map[string]float64)
	spans := make(map[string][]driven.TermSpan)

	for _, term := range terms {
		docPostings, ok := idx.postings[term]
		if !ok {
			continue
		}

		df := 0
		for docID := range docPostings {
			if compiled.Matches(idx.docs[docID].bitmap) {
				df++
			}
		}
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (float64(totalDocs)-float64(df)+0.5)/(float64(df)+0.5))

		for docID, p := range docPostings {
			entry := idx.docs[docID]
			if !compiled.Matches(entry.bitmap) {
				continue
			}
			tf := float64(p.termFreq)
			norm := tf * (idx.k1 + 1) /
				(tf + idx.k1*(1-idx.b+idx.b*float64(entry.length)/avgLen))
			scores[docID] += idf * norm
			spans[docID] = append(spans[docID], p.spans...)
		}
	}

	hits := make([]driven.LexicalHit, 0, len(scores))
	for docID, score := range scores {
		hits = append(hits, driven.LexicalHit{
			DocumentID: docID,
			Score:      score,
			TermSpans:  spans[docID],
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		ti := idx.docs[hits[i].DocumentID].updatedAt
		tj := idx.docs[hits[j].DocumentID].updatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}
