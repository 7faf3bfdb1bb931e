package services

import (
	"sort"

	"github.com/apidex-labs/apidex/internal/core/ports/driven"
)

// mergeCandidates unions lexical and vector hits into a bounded,
// deduplicated candidate set keyed by document.
//
// BM25 scores and cosine similarities are not on comparable scales, so
// each hit list is min-max normalised to [0,1] independently; a document
// appearing in both keeps the max of its two normalised scores. The set
// is truncated to the cap highest merge-stage scores with ties broken by
// documentID ascending for reproducibility.
func mergeCandidates(
	lexicalHits []driven.LexicalHit, vectorHits []driven.VectorHit, maxCandidates int,
) []*candidate {
	byDoc := make(map[string]*candidate)

	lexScores := make([]float64, len(lexicalHits))
	for i, hit := range lexicalHits {
		lexScores[i] = hit.Score
	}
	for i, norm := range minMaxNormalize(lexScores) {
		hit := lexicalHits[i]
		byDoc[hit.DocumentID] = &candidate{
			documentID: hit.DocumentID,
			mergeScore: norm,
			termSpans:  hit.TermSpans,
		}
	}

	vecScores := make([]float64, len(vectorHits))
	for i, hit := range vectorHits {
		vecScores[i] = hit.Similarity
	}
	normVec := minMaxNormalize(vecScores)
	for i, hit := range vectorHits {
		c, ok := byDoc[hit.DocumentID]
		if !ok {
			c = &candidate{documentID: hit.DocumentID}
			byDoc[hit.DocumentID] = c
		}
		if normVec[i] > c.mergeScore {
			c.mergeScore = normVec[i]
		}
		// Vector hits arrive ordered by similarity, so contributing
		// chunks stay best-first per document.
		c.chunkIDs = append(c.chunkIDs, hit.ChunkID)
	}

	merged := make([]*candidate, 0, len(byDoc))
	for _, c := range byDoc {
		// Until re-ranking runs, the merge score is the best ordering
		// signal available.
		c.rerankScore = c.mergeScore
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].mergeScore != merged[j].mergeScore {
			return merged[i].mergeScore > merged[j].mergeScore
		}
		return merged[i].documentID < merged[j].documentID
	})

	if len(merged) > maxCandidates {
		merged = merged[:maxCandidates]
	}
	return merged
}

// minMaxNormalize scales scores to [0,1]. A uniform list maps to all-ones
// when positive so a single strong hit is not zeroed out.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	lo, hi := scores[0], scores[0]
	for _, v := range scores[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			if hi > 0 {
				out[i] = 1
			}
		}
		return out
	}
	for i, v := range scores {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
