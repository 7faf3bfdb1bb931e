package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

// signalRank applies the weighted multi-factor scoring formula to the
// re-ranked candidates and produces the final ordering. Every component
// is normalised to [0,1]; the final score is their weighted sum. Ties
// break by documentID ascending so a fixed index state, user context and
// query always yield the identical ordering.
func (s *SearchService) signalRank(
	ctx context.Context, candidates []*candidate, user domain.UserContext,
) []domain.SearchResult {
	if len(candidates) == 0 {
		return []domain.SearchResult{}
	}

	w := s.settings.Weights
	now := s.now()

	rerankScores := make([]float64, len(candidates))
	for i, c := range candidates {
		rerankScores[i] = c.rerankScore
	}
	textRelevance := minMaxNormalize(rerankScores)

	// Popularity and historical success are normalised against the
	// current result set, log-scaled so high-traffic outliers do not
	// dominate.
	volumes := make([]float64, len(candidates))
	var maxLogVolume, maxSelections float64
	for i, c := range candidates {
		if profile := s.profileFor(ctx, c.documentID); profile != nil {
			volumes[i] = math.Log1p(float64(profile.CallVolume30d))
			if volumes[i] > maxLogVolume {
				maxLogVolume = volumes[i]
			}
		}
		if n := float64(user.HistoricalSelections[c.documentID]); n > maxSelections {
			maxSelections = n
		}
	}

	results := make([]domain.SearchResult, len(candidates))
	for i, c := range candidates {
		components := domain.ComponentScores{
			TextRelevance:     textRelevance[i],
			Performance:       s.performanceScore(ctx, c.documentID),
			Geography:         s.geographyScore(c.doc.Region, user.Region),
			Freshness:         s.freshnessScore(c.doc.LastUpdatedAt, now),
			PermissionFit:     permissionFit(c.doc.RequiredScopes, user),
			HistoricalSuccess: normalizedAgainst(float64(user.HistoricalSelections[c.documentID]), maxSelections),
			Popularity:        normalizedAgainst(volumes[i], maxLogVolume),
		}

		final := w.TextRelevance*components.TextRelevance +
			w.Performance*components.Performance +
			w.Geography*components.Geography +
			w.Freshness*components.Freshness +
			w.PermissionFit*components.PermissionFit +
			w.HistoricalSuccess*components.HistoricalSuccess +
			w.Popularity*components.Popularity

		results[i] = domain.SearchResult{
			DocumentID: c.documentID,
			Document:   *c.doc,
			FinalScore: final,
			Components: components,
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	return results
}

// profileFor fetches telemetry for a document, treating lookup failures
// as missing telemetry.
func (s *SearchService) profileFor(ctx context.Context, documentID string) *domain.PerformanceProfile {
	if s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.GetProfile(ctx, documentID)
	if err != nil {
		return nil
	}
	return profile
}

// performanceScore combines availability SLO with a monotonic decreasing
// function of p95 latency. Missing telemetry scores zero.
func (s *SearchService) performanceScore(ctx context.Context, documentID string) float64 {
	profile := s.profileFor(ctx, documentID)
	if profile == nil {
		return 0
	}
	latencyPenalty := profile.P95LatencyMs / s.settings.P95ThresholdMs
	if latencyPenalty > 1 {
		latencyPenalty = 1
	}
	return clamp01(profile.AvailabilitySLO * (1 - latencyPenalty))
}

// geographyScore is 1.0 for a region match, decaying by the configured
// step per region hop otherwise. Documents without region metadata
// score zero.
func (s *SearchService) geographyScore(docRegion, userRegion string) float64 {
	if docRegion == "" || userRegion == "" {
		return 0
	}
	if docRegion == userRegion {
		return 1
	}
	// Without a region topology every mismatch counts as one hop.
	return s.settings.RegionHopDecay
}

// freshnessScore decays exponentially with document age using the
// configured half-life.
func (s *SearchService) freshnessScore(updatedAt, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0
	}
	age := now.Sub(updatedAt)
	if age <= 0 {
		return 1
	}
	halfLives := float64(age) / float64(s.settings.FreshnessHalfLife)
	return math.Exp2(-halfLives)
}

// permissionFit is the fraction of the document's required scopes the
// user holds. A score of zero does not exclude the result: users may
// need to discover APIs they still have to onboard to. Documents with no
// required scopes fit everyone.
func permissionFit(required []string, user domain.UserContext) float64 {
	if len(required) == 0 {
		return 1
	}
	held := 0
	for _, scope := range required {
		if user.HasScope(scope) {
			held++
		}
	}
	return float64(held) / float64(len(required))
}

// normalizedAgainst divides a value by the set maximum, returning zero
// for an all-zero set.
func normalizedAgainst(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(value / max)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
