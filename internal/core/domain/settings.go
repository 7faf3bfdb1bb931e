package domain

import (
	"fmt"
	"math"
	"time"
)

// weightSumTolerance is the allowed deviation from 1.0 for the weight sum.
const weightSumTolerance = 1e-6

// ScoringWeights holds the weights of the seven ranking components.
// Weights must be non-negative and sum to 1; this is enforced at
// construction so misconfiguration is caught at startup.
type ScoringWeights struct {
	TextRelevance     float64 `toml:"text_relevance"`
	Performance       float64 `toml:"performance"`
	Geography         float64 `toml:"geography"`
	Freshness         float64 `toml:"freshness"`
	PermissionFit     float64 `toml:"permission_fit"`
	HistoricalSuccess float64 `toml:"historical_success"`
	Popularity        float64 `toml:"popularity"`
}

// DefaultScoringWeights returns the default component weights.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		TextRelevance:     0.30,
		Performance:       0.15,
		Geography:         0.10,
		Freshness:         0.10,
		PermissionFit:     0.15,
		HistoricalSuccess: 0.10,
		Popularity:        0.10,
	}
}

// Validate checks that all weights are non-negative and sum to 1.
func (w ScoringWeights) Validate() error {
	for name, v := range map[string]float64{
		"text_relevance":     w.TextRelevance,
		"performance":        w.Performance,
		"geography":          w.Geography,
		"freshness":          w.Freshness,
		"permission_fit":     w.PermissionFit,
		"historical_success": w.HistoricalSuccess,
		"popularity":         w.Popularity,
	} {
		if v < 0 {
			return fmt.Errorf("%w: weight %s is negative", ErrInvalidWeights, name)
		}
	}
	sum := w.TextRelevance + w.Performance + w.Geography + w.Freshness +
		w.PermissionFit + w.HistoricalSuccess + w.Popularity
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.6f, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// EngineSettings are the tunable parameters of the ranking pipeline.
type EngineSettings struct {
	// Weights are the component weights of the final score.
	Weights ScoringWeights

	// MergeCap bounds the candidate set after lexical/vector union.
	MergeCap int

	// RerankTopN bounds the cross-encoder re-ranking pass.
	RerankTopN int

	// P95ThresholdMs is the latency above which the performance
	// component bottoms out at zero.
	P95ThresholdMs float64

	// FreshnessHalfLife is the half-life of the freshness decay.
	FreshnessHalfLife time.Duration

	// RegionHopDecay is the multiplicative geography penalty per
	// region hop.
	RegionHopDecay float64

	// EmbedTimeout bounds the query embedding call.
	EmbedTimeout time.Duration

	// RerankTimeout bounds the cross-encoder batch call.
	RerankTimeout time.Duration

	// QueryDeadline is the overall per-query deadline. When exceeded,
	// the pipeline returns the best-effort ranking available from the
	// last completed stage.
	QueryDeadline time.Duration
}

// DefaultEngineSettings returns the default pipeline parameters.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		Weights:           DefaultScoringWeights(),
		MergeCap:          50,
		RerankTopN:        10,
		P95ThresholdMs:    1000,
		FreshnessHalfLife: 30 * 24 * time.Hour,
		RegionHopDecay:    0.5,
		EmbedTimeout:      200 * time.Millisecond,
		RerankTimeout:     500 * time.Millisecond,
		QueryDeadline:     300 * time.Millisecond,
	}
}

// Validate checks the settings for internal consistency.
func (s EngineSettings) Validate() error {
	if err := s.Weights.Validate(); err != nil {
		return err
	}
	if s.MergeCap <= 0 {
		return fmt.Errorf("%w: merge cap must be positive", ErrInvalidInput)
	}
	if s.RerankTopN <= 0 {
		return fmt.Errorf("%w: rerank top-n must be positive", ErrInvalidInput)
	}
	if s.P95ThresholdMs <= 0 {
		return fmt.Errorf("%w: p95 threshold must be positive", ErrInvalidInput)
	}
	if s.FreshnessHalfLife <= 0 {
		return fmt.Errorf("%w: freshness half-life must be positive", ErrInvalidInput)
	}
	if s.RegionHopDecay < 0 || s.RegionHopDecay > 1 {
		return fmt.Errorf("%w: region hop decay must be in [0,1]", ErrInvalidInput)
	}
	return nil
}
