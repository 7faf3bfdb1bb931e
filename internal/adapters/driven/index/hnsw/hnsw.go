// Package hnsw provides an in-process approximate-nearest-neighbour index
// over chunk embeddings with HNSW graph semantics: an arena of nodes
// addressed by integer indices, navigated by greedy nearest-neighbour
// descent. Similarity is cosine over normalised vectors.
//
// Filter predicates are tested against per-node bitmaps during the graph
// walk; non-matching nodes are traversed for connectivity but never
// scored into the result set. Small corpora fall back to a filtered
// brute-force scan.
package hnsw

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/apidex-labs/apidex/internal/adapters/driven/index/filter"
	"github.com/apidex-labs/apidex/internal/core/domain"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default graph parameters.
const (
	DefaultM              = 16
	DefaultEFConstruction = 200
	DefaultEFSearch       = 64

	// DefaultBruteForceThreshold is the corpus size below which search
	// scans all nodes instead of walking the graph.
	DefaultBruteForceThreshold = 256
)

// node is one arena slot. Neighbour lists hold arena indices rather than
// pointers so the graph carries no ownership cycles.
type node struct {
	chunkID    string
	documentID string
	vec        []float32 // normalised
	level      int
	neighbors  [][]int32 // per level
	deleted    bool
	bitmap     filter.Bitmap
}

// Option configures the index.
type Option func(*Index)

// WithM sets the maximum neighbour count per node per layer.
func WithM(m int) Option {
	return func(idx *Index) {
		if m > 1 {
			idx.m = m
		}
	}
}

// WithEFSearch sets the search beam width.
func WithEFSearch(ef int) Option {
	return func(idx *Index) {
		if ef > 0 {
			idx.efSearch = ef
		}
	}
}

// WithSeed fixes the level-assignment RNG for reproducible graphs.
func WithSeed(seed int64) Option {
	return func(idx *Index) {
		idx.rng = rand.New(rand.NewSource(seed))
	}
}

// Index is an HNSW graph over chunk embeddings.
type Index struct {
	mu sync.RWMutex

	dimension      int
	m              int
	efConstruction int
	efSearch       int
	levelFactor    float64

	nodes   []node // arena; slots of deleted nodes are retained
	byChunk map[string]int32
	byDoc   map[string][]int32
	entry   int32 // arena index of the entry point, -1 when empty
	active  int

	rng     *rand.Rand
	filters *filter.Table

	bruteForceThreshold int
}

// New creates an empty vector index for embeddings of the given dimension.
func New(dimension int, opts ...Option) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}
	idx := &Index{
		dimension:           dimension,
		m:                   DefaultM,
		efConstruction:      DefaultEFConstruction,
		efSearch:            DefaultEFSearch,
		byChunk:             make(map[string]int32),
		byDoc:               make(map[string][]int32),
		entry:               -1,
		rng:                 rand.New(rand.NewSource(rand.Int63())),
		filters:             filter.NewTable(),
		bruteForceThreshold: DefaultBruteForceThreshold,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.levelFactor = 1 / math.Log(float64(idx.m))
	return idx, nil
}

// Add inserts or replaces the vector for a chunk.
func (idx *Index) Add(_ context.Context, chunk domain.Chunk, doc domain.Document) error {
	if len(chunk.Embedding) != idx.dimension {
		return fmt.Errorf("%w: got %d, index expects %d",
			domain.ErrDimensionMismatch, len(chunk.Embedding), idx.dimension)
	}

	vec := normalize(chunk.Embedding)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.byChunk[chunk.ID]; ok {
		idx.removeNodeLocked(old)
	}

	level := idx.randomLevel()
	n := node{
		chunkID:    chunk.ID,
		documentID: doc.ID,
		vec:        vec,
		level:      level,
		neighbors:  make([][]int32, level+1),
		bitmap:     idx.filters.BitmapFor(doc),
	}

	id := int32(len(idx.nodes))
	idx.nodes = append(idx.nodes, n)
	idx.byChunk[chunk.ID] = id
	idx.byDoc[doc.ID] = append(idx.byDoc[doc.ID], id)
	idx.active++

	if idx.entry < 0 {
		idx.entry = id
		return nil
	}

	idx.linkLocked(id)
	if level > idx.nodes[idx.entry].level {
		idx.entry = id
	}
	return nil
}

// DeleteDocument removes all chunk vectors of a document. Arena slots are
// retained; the nodes are unlinked from lookup maps and skipped during
// traversal.
func (idx *Index) DeleteDocument(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, id := range idx.byDoc[documentID] {
		idx.removeNodeLocked(id)
	}
	delete(idx.byDoc, documentID)
	return nil
}

// Search finds the k nearest chunks to the query among chunks whose
// document satisfies the filters.
func (idx *Index) Search(
	_ context.Context, query []float32, filters domain.FilterSet, k int,
) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: got %d, index expects %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	vec := normalize(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.active == 0 {
		return nil, nil
	}

	compiled := idx.filters.Compile(filters)

	if idx.active <= idx.bruteForceThreshold {
		return idx.bruteForceLocked(vec, compiled, k), nil
	}
	return idx.graphSearchLocked(vec, compiled, k), nil
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// --- internals ---

func (idx *Index) randomLevel() int {
	return int(math.Floor(-math.Log(idx.rng.Float64()) * idx.levelFactor))
}

// removeNodeLocked unlinks one node. Caller holds the write lock.
func (idx *Index) removeNodeLocked(id int32) {
	n := &idx.nodes[id]
	if n.deleted {
		return
	}
	n.deleted = true
	delete(idx.byChunk, n.chunkID)
	idx.active--

	if idx.entry == id {
		idx.entry = idx.pickEntryLocked()
	}
}

// pickEntryLocked selects the live node with the highest level, or -1.
func (idx *Index) pickEntryLocked() int32 {
	best := int32(-1)
	for i := range idx.nodes {
		if idx.nodes[i].deleted {
			continue
		}
		if best < 0 || idx.nodes[i].level > idx.nodes[best].level {
			best = int32(i)
		}
	}
	return best
}

// linkLocked wires a freshly inserted node into the graph.
func (idx *Index) linkLocked(id int32) {
	n := &idx.nodes[id]
	ep := idx.entry
	maxLevel := idx.nodes[ep].level

	// Greedy descent through layers above the node's top level.
	for level := maxLevel; level > n.level; level-- {
		ep = idx.greedyClosestLocked(n.vec, ep, level)
	}

	for level := min(n.level, maxLevel); level >= 0; level-- {
		candidates := idx.searchLayerLocked(n.vec, ep, idx.efConstruction, level, nil)
		neighbors := candidates
		if len(neighbors) > idx.m {
			neighbors = neighbors[:idx.m]
		}
		for _, c := range neighbors {
			n.neighbors[level] = append(n.neighbors[level], c.id)
			idx.addLinkLocked(c.id, id, level)
		}
		if len(candidates) > 0 {
			ep = candidates[0].id
		}
	}
}

// addLinkLocked adds a reverse edge, pruning to the m closest when the
// neighbour list overflows.
func (idx *Index) addLinkLocked(from, to int32, level int) {
	n := &idx.nodes[from]
	if level > n.level {
		return
	}
	n.neighbors[level] = append(n.neighbors[level], to)
	if len(n.neighbors[level]) <= idx.m*2 {
		return
	}

	links := n.neighbors[level]
	sort.Slice(links, func(i, j int) bool {
		return dot(idx.nodes[links[i]].vec, n.vec) > dot(idx.nodes[links[j]].vec, n.vec)
	})
	n.neighbors[level] = links[:idx.m]
}

// greedyClosestLocked walks one layer greedily towards the query.
func (idx *Index) greedyClosestLocked(vec []float32, ep int32, level int) int32 {
	best := ep
	bestSim := dot(vec, idx.nodes[ep].vec)
	for {
		improved := false
		for _, nb := range idx.neighborsAt(best, level) {
			if idx.nodes[nb].deleted {
				continue
			}
			if sim := dot(vec, idx.nodes[nb].vec); sim > bestSim {
				best, bestSim = nb, sim
				improved = true
			}
		}
		if !improved {
			return best
		}
	}
}

func (idx *Index) neighborsAt(id int32, level int) []int32 {
	n := &idx.nodes[id]
	if level > n.level {
		return nil
	}
	return n.neighbors[level]
}

// scored pairs an arena index with its similarity to the query.
type scored struct {
	id  int32
	sim float64
}

// maxHeap orders best-first; minHeap orders worst-first for result pruning.
type maxHeap []scored

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].sim > h[j].sim }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)         { *h = append(*h, x.(scored)) }
func (h *maxHeap) Pop() any           { old := *h; n := len(old); x := old[n-1]; *h = old[:n-1]; return x }

type minHeap []scored

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].sim < h[j].sim }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() any           { old := *h; n := len(old); x := old[n-1]; *h = old[:n-1]; return x }

// searchLayerLocked runs a beam search of width ef on one layer and
// returns up to ef closest admissible nodes, best first. A node outside
// the filter is treated like a deleted one: its edges are traversed for
// connectivity, but it never enters the result heap, so filtered-out
// neighbours cannot crowd matching candidates out of the beam. A nil
// compiled admits every live node (construction path).
func (idx *Index) searchLayerLocked(vec []float32, ep int32, ef, level int, compiled *filter.Compiled) []scored {
	admit := func(id int32) bool {
		n := &idx.nodes[id]
		if n.deleted {
			return false
		}
		return compiled == nil || compiled.Matches(n.bitmap)
	}

	visited := map[int32]bool{ep: true}

	start := scored{id: ep, sim: dot(vec, idx.nodes[ep].vec)}
	candidates := maxHeap{start}
	var results minHeap
	if admit(ep) {
		results = minHeap{start}
	}

	for candidates.Len() > 0 {
		c := heap.Pop(&candidates).(scored)
		if results.Len() >= ef && c.sim < results[0].sim {
			break
		}
		for _, nb := range idx.neighborsAt(c.id, level) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			sim := dot(vec, idx.nodes[nb].vec)
			if results.Len() < ef || sim > results[0].sim {
				heap.Push(&candidates, scored{id: nb, sim: sim})
				if admit(nb) {
					heap.Push(&results, scored{id: nb, sim: sim})
					if results.Len() > ef {
						heap.Pop(&results)
					}
				}
			}
		}
	}

	out := make([]scored, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool { return out[i].sim > out[j].sim })
	return out
}

// graphSearchLocked walks the graph with the filter applied during the
// walk, so only matching nodes ever occupy beam slots.
func (idx *Index) graphSearchLocked(vec []float32, compiled filter.Compiled, k int) []driven.VectorHit {
	ep := idx.entry
	for level := idx.nodes[ep].level; level > 0; level-- {
		ep = idx.greedyClosestLocked(vec, ep, level)
	}

	ef := idx.efSearch
	if ef < k*4 {
		ef = k * 4
	}
	matches := idx.searchLayerLocked(vec, ep, ef, 0, &compiled)

	hits := make([]driven.VectorHit, 0, k)
	for _, c := range matches {
		n := &idx.nodes[c.id]
		hits = append(hits, driven.VectorHit{
			ChunkID:    n.chunkID,
			DocumentID: n.documentID,
			Similarity: clampSim(c.sim),
		})
		if len(hits) == k {
			break
		}
	}
	return sortHits(hits)
}

// bruteForceLocked is the conforming fallback for small corpora: score
// every live, filter-matching node.
func (idx *Index) bruteForceLocked(vec []float32, compiled filter.Compiled, k int) []driven.VectorHit {
	hits := make([]driven.VectorHit, 0, idx.active)
	for i := range idx.nodes {
		n := &idx.nodes[i]
		if n.deleted || !compiled.Matches(n.bitmap) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ChunkID:    n.chunkID,
			DocumentID: n.documentID,
			Similarity: clampSim(dot(vec, n.vec)),
		})
	}
	hits = sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// sortHits orders by similarity descending, tie-broken by chunk ID for
// reproducibility.
func sortHits(hits []driven.VectorHit) []driven.VectorHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clampSim(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
